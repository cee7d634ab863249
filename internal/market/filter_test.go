package market

import (
	"testing"

	"github.com/seshjuansauce/polybot-data-etl/internal/polymarket"
)

func eligibleRecord(id string) polymarket.Record {
	return polymarket.Record{
		"id":             id,
		"liquidityClob":  60000.0,
		"bestBid":        0.48,
		"bestAsk":        0.50,
		"volume24hrClob": 80000.0,
		"active":         true,
		"closed":         false,
	}
}

func TestFilterWorkedExample(t *testing.T) {
	// liquidityClob absent, liquidityNum fallback; spread from bid/ask.
	rec := polymarket.Record{
		"liquidityNum":   40000.0,
		"bestBid":        0.40,
		"bestAsk":        0.41,
		"volume24hrClob": 60000.0,
		"active":         true,
		"closed":         false,
	}

	tbl := Filter([]polymarket.Record{rec}, DefaultPolicy())
	if len(tbl.Rows) != 1 {
		t.Fatalf("Expected 1 passing row, got %d", len(tbl.Rows))
	}

	row := tbl.Rows[0]
	if row.LiquidityCanon != 40000 {
		t.Errorf("Expected liquidity_canon 40000, got %v", row.LiquidityCanon)
	}
	if row.Volume24hCanon != 60000 {
		t.Errorf("Expected volume24h_canon 60000, got %v", row.Volume24hCanon)
	}
	if row.SpreadCalc == nil {
		t.Fatal("Expected observable spread")
	}
	if got := *row.SpreadCalc; got < 0.0099 || got > 0.0101 {
		t.Errorf("Expected spread_calc ~0.01, got %v", got)
	}
}

func TestFilterVolumeFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		rec  polymarket.Record
		want float64
	}{
		{"clob preferred", polymarket.Record{"volume24hrClob": 100.0, "volume24hr": 50.0}, 100},
		{"raw fallback", polymarket.Record{"volume24hr": 50.0}, 50},
		{"string numeric", polymarket.Record{"volume24hrClob": "75.5"}, 75.5},
		{"non-numeric coerces to absent", polymarket.Record{"volume24hrClob": "n/a", "volume24hr": 50.0}, 50},
		{"all absent defaults to zero", polymarket.Record{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := volumeChain.resolve(tc.rec); got != tc.want {
				t.Errorf("resolve = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterLiquidityFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		rec  polymarket.Record
		want float64
	}{
		{"clob preferred", polymarket.Record{"liquidityClob": 1.0, "liquidityNum": 2.0, "liquidity": 3.0}, 1},
		{"num second", polymarket.Record{"liquidityNum": 2.0, "liquidity": 3.0}, 2},
		{"raw last", polymarket.Record{"liquidity": 3.0}, 3},
		{"all absent defaults to zero", polymarket.Record{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := liquidityChain.resolve(tc.rec); got != tc.want {
				t.Errorf("resolve = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSpreadAsymmetry(t *testing.T) {
	// An explicit spread field is accepted even without bid/ask.
	explicit := newRow(polymarket.Record{"spread": 0.02})
	if explicit.SpreadCalc == nil || *explicit.SpreadCalc != 0.02 {
		t.Errorf("Explicit spread without bid/ask should be observable, got %v", explicit.SpreadCalc)
	}

	// The computed fallback requires both sides.
	bidOnly := newRow(polymarket.Record{"bestBid": 0.4})
	if bidOnly.SpreadCalc != nil {
		t.Errorf("Spread with only a bid should be unobservable, got %v", *bidOnly.SpreadCalc)
	}

	both := newRow(polymarket.Record{"bestBid": 0.40, "bestAsk": 0.43})
	if both.SpreadCalc == nil {
		t.Fatal("Spread with both sides should be observable")
	}
	if got := *both.SpreadCalc; got < 0.0299 || got > 0.0301 {
		t.Errorf("Expected computed spread ~0.03, got %v", got)
	}

	// Explicit spread wins over the computed value.
	overridden := newRow(polymarket.Record{"spread": 0.01, "bestBid": 0.10, "bestAsk": 0.90})
	if overridden.SpreadCalc == nil || *overridden.SpreadCalc != 0.01 {
		t.Errorf("Explicit spread should win over bid/ask, got %v", overridden.SpreadCalc)
	}

	// No spread information at all is unobservable and ineligible.
	none := newRow(polymarket.Record{})
	if none.SpreadCalc != nil {
		t.Errorf("Spread with no sources should be unobservable, got %v", *none.SpreadCalc)
	}
}

func TestLivenessDefaults(t *testing.T) {
	cases := []struct {
		name string
		rec  polymarket.Record
		want bool
	}{
		{"all absent defaults to live", polymarket.Record{}, true},
		{"closed excludes", polymarket.Record{"closed": true}, false},
		{"archived excludes", polymarket.Record{"archived": true}, false},
		{"inactive excludes", polymarket.Record{"active": false}, false},
		{"not accepting excludes", polymarket.Record{"acceptingOrders": false}, false},
		{"explicitly live", polymarket.Record{"active": true, "closed": false, "archived": false, "acceptingOrders": true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := newRow(tc.rec)
			if got := row.live(); got != tc.want {
				t.Errorf("live() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterRequireLiveDisabled(t *testing.T) {
	rec := eligibleRecord("m1")
	rec["closed"] = true

	policy := DefaultPolicy()
	if got := Filter([]polymarket.Record{rec}, policy); len(got.Rows) != 0 {
		t.Errorf("Closed market should be excluded when require_live is on")
	}

	policy.RequireLive = false
	if got := Filter([]polymarket.Record{rec}, policy); len(got.Rows) != 1 {
		t.Errorf("Closed market should pass when require_live is off")
	}
}

func TestFilterThresholds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(polymarket.Record)
		want   int
	}{
		{"baseline passes", func(r polymarket.Record) {}, 1},
		{"wide spread excluded", func(r polymarket.Record) { r["bestAsk"] = 0.60 }, 0},
		{"thin book excluded", func(r polymarket.Record) { r["liquidityClob"] = 1000.0 }, 0},
		{"low volume excluded", func(r polymarket.Record) { r["volume24hrClob"] = 1000.0 }, 0},
		{"boundary values pass", func(r polymarket.Record) {
			r["liquidityClob"] = 30000.0
			r["volume24hrClob"] = 50000.0
			r["spread"] = 0.03
		}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := eligibleRecord("m1")
			tc.mutate(rec)
			tbl := Filter([]polymarket.Record{rec}, DefaultPolicy())
			if len(tbl.Rows) != tc.want {
				t.Errorf("Expected %d rows, got %d", tc.want, len(tbl.Rows))
			}
		})
	}
}

func TestFilterOrdering(t *testing.T) {
	mk := func(id string, vol, liq, bid, ask float64) polymarket.Record {
		return polymarket.Record{
			"id":             id,
			"volume24hrClob": vol,
			"liquidityClob":  liq,
			"bestBid":        bid,
			"bestAsk":        ask,
		}
	}

	records := []polymarket.Record{
		mk("low-vol", 60000, 50000, 0.50, 0.51),
		mk("tie-wide", 90000, 40000, 0.50, 0.52),
		mk("high-vol", 90000, 50000, 0.50, 0.51),
		mk("tie-narrow", 90000, 40000, 0.50, 0.51),
	}

	tbl := Filter(records, DefaultPolicy())
	if len(tbl.Rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(tbl.Rows))
	}

	want := []string{"high-vol", "tie-narrow", "tie-wide", "low-vol"}
	for i, id := range want {
		if tbl.Rows[i].ID == nil || *tbl.Rows[i].ID != id {
			t.Errorf("Row %d: expected %s, got %v", i, id, tbl.Rows[i].ID)
		}
	}

	// Canonical fields stay non-negative on every returned row.
	for i, row := range tbl.Rows {
		if row.Volume24hCanon < 0 || row.LiquidityCanon < 0 {
			t.Errorf("Row %d has negative canonical fields", i)
		}
	}
}

func TestFilterStableSortTies(t *testing.T) {
	mk := func(id string) polymarket.Record {
		rec := eligibleRecord(id)
		return rec
	}

	tbl := Filter([]polymarket.Record{mk("first"), mk("second"), mk("third")}, DefaultPolicy())
	if len(tbl.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(tbl.Rows))
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if *tbl.Rows[i].ID != id {
			t.Errorf("Ties must preserve input order: row %d = %s, want %s", i, *tbl.Rows[i].ID, id)
		}
	}
}

func TestFilterEmptyInput(t *testing.T) {
	tbl := Filter(nil, DefaultPolicy())
	if len(tbl.Rows) != 0 {
		t.Errorf("Expected empty result, got %d rows", len(tbl.Rows))
	}
	// Computed columns exist even for an empty batch.
	want := []string{"bestBid", "bestAsk", "spread_calc", "liquidity_canon", "volume24h_canon"}
	if len(tbl.Columns) != len(want) {
		t.Fatalf("Expected %d columns, got %v", len(want), tbl.Columns)
	}
	for i, col := range want {
		if tbl.Columns[i] != col {
			t.Errorf("Column %d = %s, want %s", i, tbl.Columns[i], col)
		}
	}
}

func TestFilterColumnsFollowBatch(t *testing.T) {
	records := []polymarket.Record{
		{"id": "m1", "question": "Will it rain?", "volume24hrClob": 1.0},
		{"id": "m2", "slug": "rain", "liquidityNum": 2.0},
	}

	tbl := Filter(records, DefaultPolicy())
	has := make(map[string]bool, len(tbl.Columns))
	for _, c := range tbl.Columns {
		has[c] = true
	}

	for _, col := range []string{"id", "slug", "question", "volume24hrClob", "liquidityNum",
		"bestBid", "bestAsk", "spread_calc", "liquidity_canon", "volume24h_canon"} {
		if !has[col] {
			t.Errorf("Expected column %s in output", col)
		}
	}
	for _, col := range []string{"category", "archived", "spread", "liquidityClob"} {
		if has[col] {
			t.Errorf("Column %s absent from batch should not appear", col)
		}
	}
}
