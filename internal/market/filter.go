package market

import (
	"math"
	"sort"

	"github.com/seshjuansauce/polybot-data-etl/internal/polymarket"
)

// Policy is the trading-eligibility parameter set for one strategy.
type Policy struct {
	MaxSpread    float64
	MinLiquidity float64
	MinVolume24h float64
	RequireLive  bool
}

// DefaultPolicy returns the strategy-0 thresholds: spread no wider than 3
// cents, at least 30k of book depth, and at least 50k traded in 24h.
func DefaultPolicy() Policy {
	return Policy{
		MaxSpread:    0.03,
		MinLiquidity: 30_000,
		MinVolume24h: 50_000,
		RequireLive:  true,
	}
}

// fallbackChain resolves one canonical value from differently-named source
// candidates, evaluated in priority order with a terminal default. Kept as
// an explicit ordered list so the priority order is auditable in isolation.
type fallbackChain struct {
	fields []string
	def    float64
}

func (fc fallbackChain) resolve(rec polymarket.Record) float64 {
	for _, field := range fc.fields {
		if v, ok := numLookup(rec, field); ok {
			return v
		}
	}
	return fc.def
}

var (
	volumeChain    = fallbackChain{fields: []string{"volume24hrClob", "volume24hr"}, def: 0}
	liquidityChain = fallbackChain{fields: []string{"liquidityClob", "liquidityNum", "liquidity"}, def: 0}
)

// outputColumns is the fixed column order of a landed table. Source fields
// are included only when present somewhere in the input batch.
var outputColumns = []string{
	"id", "slug", "question", "category",
	"active", "closed", "archived", "acceptingOrders",
	"bestBid", "bestAsk", "spread", "spread_calc",
	"liquidityClob", "liquidityNum", "liquidity", "liquidity_canon",
	"volume24hrClob", "volume24hr", "volume24h_canon",
}

// computedColumns are always part of the output, even when constant.
var computedColumns = []string{
	"bestBid", "bestAsk", "spread_calc", "liquidity_canon", "volume24h_canon",
}

// Table is an ordered, column-typed batch of canonical market rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// Filter canonicalizes records and keeps only rows passing the policy,
// ordered by (volume desc, liquidity desc, spread asc) with input order
// breaking ties. An empty input yields an empty table, not an error.
func Filter(records []polymarket.Record, policy Policy) Table {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := newRow(rec)
		if row.eligible(policy) {
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Volume24hCanon != rows[j].Volume24hCanon {
			return rows[i].Volume24hCanon > rows[j].Volume24hCanon
		}
		if rows[i].LiquidityCanon != rows[j].LiquidityCanon {
			return rows[i].LiquidityCanon > rows[j].LiquidityCanon
		}
		return spreadOf(&rows[i]) < spreadOf(&rows[j])
	})

	return Table{Columns: batchColumns(records), Rows: rows}
}

// spreadOf treats an unobservable spread as slower-sorting than any value.
// Eligible rows always carry one, but the sort must not dereference nil.
func spreadOf(r *Row) float64 {
	if r.SpreadCalc == nil {
		return math.MaxFloat64
	}
	return *r.SpreadCalc
}

// batchColumns returns the output column set: passthrough columns present
// anywhere in the batch, in fixed order, plus the computed columns.
func batchColumns(records []polymarket.Record) []string {
	present := make(map[string]bool, len(outputColumns))
	for _, rec := range records {
		for _, col := range outputColumns {
			if _, ok := rec[col]; ok {
				present[col] = true
			}
		}
	}
	for _, col := range computedColumns {
		present[col] = true
	}

	cols := make([]string, 0, len(present))
	for _, col := range outputColumns {
		if present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}
