// Package market canonicalizes raw Gamma market records and filters them
// against a trading-eligibility policy.
package market

import (
	"encoding/json"
	"strconv"

	"github.com/seshjuansauce/polybot-data-etl/internal/polymarket"
)

// Row is a canonicalized market. Passthrough fields are pointers because the
// upstream schema guarantees nothing; nil means the field was absent or not
// coercible. LiquidityCanon and Volume24hCanon are always present and
// non-negative. SpreadCalc is nil when the spread is unobservable.
type Row struct {
	ID              *string
	Slug            *string
	Question        *string
	Category        *string
	Active          *bool
	Closed          *bool
	Archived        *bool
	AcceptingOrders *bool
	BestBid         *float64
	BestAsk         *float64
	Spread          *float64
	SpreadCalc      *float64
	LiquidityClob   *float64
	LiquidityNum    *float64
	Liquidity       *float64
	LiquidityCanon  float64
	Volume24hrClob  *float64
	Volume24hr      *float64
	Volume24hCanon  float64
}

// numLookup reads a numeric field from a record. JSON numbers and numeric
// strings both count; anything else is treated as absent.
func numLookup(rec polymarket.Record, field string) (float64, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func boolLookup(rec polymarket.Record, field string) (bool, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func strLookup(rec polymarket.Record, field string) (string, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func numPtr(rec polymarket.Record, field string) *float64 {
	if v, ok := numLookup(rec, field); ok {
		return &v
	}
	return nil
}

func boolPtr(rec polymarket.Record, field string) *bool {
	if v, ok := boolLookup(rec, field); ok {
		return &v
	}
	return nil
}

func strPtr(rec polymarket.Record, field string) *string {
	if v, ok := strLookup(rec, field); ok {
		return &v
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// newRow flattens one raw record and computes the canonical fields.
func newRow(rec polymarket.Record) Row {
	r := Row{
		ID:              strPtr(rec, "id"),
		Slug:            strPtr(rec, "slug"),
		Question:        strPtr(rec, "question"),
		Category:        strPtr(rec, "category"),
		Active:          boolPtr(rec, "active"),
		Closed:          boolPtr(rec, "closed"),
		Archived:        boolPtr(rec, "archived"),
		AcceptingOrders: boolPtr(rec, "acceptingOrders"),
		BestBid:         numPtr(rec, "bestBid"),
		BestAsk:         numPtr(rec, "bestAsk"),
		Spread:          numPtr(rec, "spread"),
		LiquidityClob:   numPtr(rec, "liquidityClob"),
		LiquidityNum:    numPtr(rec, "liquidityNum"),
		Liquidity:       numPtr(rec, "liquidity"),
		Volume24hrClob:  numPtr(rec, "volume24hrClob"),
		Volume24hr:      numPtr(rec, "volume24hr"),
	}

	r.Volume24hCanon = volumeChain.resolve(rec)
	r.LiquidityCanon = liquidityChain.resolve(rec)

	// An explicit spread value wins even when bid/ask are missing; the
	// computed fallback requires both sides to be quoted.
	switch {
	case r.Spread != nil:
		v := *r.Spread
		r.SpreadCalc = &v
	case r.BestBid != nil && r.BestAsk != nil:
		v := *r.BestAsk - *r.BestBid
		r.SpreadCalc = &v
	}

	return r
}

// live reports the liveness predicate with upstream defaults for absent
// fields: active and acceptingOrders default true, closed and archived
// default false.
func (r *Row) live() bool {
	return boolOr(r.Active, true) &&
		!boolOr(r.Closed, false) &&
		!boolOr(r.Archived, false) &&
		boolOr(r.AcceptingOrders, true)
}

// eligible reports whether the row passes the full eligibility predicate.
func (r *Row) eligible(p Policy) bool {
	if p.RequireLive && !r.live() {
		return false
	}
	if r.SpreadCalc == nil {
		return false
	}
	return *r.SpreadCalc <= p.MaxSpread &&
		r.LiquidityCanon >= p.MinLiquidity &&
		r.Volume24hCanon >= p.MinVolume24h
}
