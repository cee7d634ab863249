package market

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type colKind int

const (
	colString colKind = iota
	colBool
	colFloat
)

type columnDef struct {
	kind colKind
	str  func(*Row) *string
	bl   func(*Row) *bool
	num  func(*Row) *float64
}

var columnDefs = map[string]columnDef{
	"id":              {kind: colString, str: func(r *Row) *string { return r.ID }},
	"slug":            {kind: colString, str: func(r *Row) *string { return r.Slug }},
	"question":        {kind: colString, str: func(r *Row) *string { return r.Question }},
	"category":        {kind: colString, str: func(r *Row) *string { return r.Category }},
	"active":          {kind: colBool, bl: func(r *Row) *bool { return r.Active }},
	"closed":          {kind: colBool, bl: func(r *Row) *bool { return r.Closed }},
	"archived":        {kind: colBool, bl: func(r *Row) *bool { return r.Archived }},
	"acceptingOrders": {kind: colBool, bl: func(r *Row) *bool { return r.AcceptingOrders }},
	"bestBid":         {kind: colFloat, num: func(r *Row) *float64 { return r.BestBid }},
	"bestAsk":         {kind: colFloat, num: func(r *Row) *float64 { return r.BestAsk }},
	"spread":          {kind: colFloat, num: func(r *Row) *float64 { return r.Spread }},
	"spread_calc":     {kind: colFloat, num: func(r *Row) *float64 { return r.SpreadCalc }},
	"liquidityClob":   {kind: colFloat, num: func(r *Row) *float64 { return r.LiquidityClob }},
	"liquidityNum":    {kind: colFloat, num: func(r *Row) *float64 { return r.LiquidityNum }},
	"liquidity":       {kind: colFloat, num: func(r *Row) *float64 { return r.Liquidity }},
	"liquidity_canon": {kind: colFloat, num: func(r *Row) *float64 { v := r.LiquidityCanon; return &v }},
	"volume24hrClob":  {kind: colFloat, num: func(r *Row) *float64 { return r.Volume24hrClob }},
	"volume24hr":      {kind: colFloat, num: func(r *Row) *float64 { return r.Volume24hr }},
	"volume24h_canon": {kind: colFloat, num: func(r *Row) *float64 { v := r.Volume24hCanon; return &v }},
}

func arrowType(kind colKind) arrow.DataType {
	switch kind {
	case colString:
		return arrow.BinaryTypes.String
	case colBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

// Arrow converts the table into an arrow.Table for columnar serialization.
// The caller owns the returned table and must Release it.
func (t Table) Arrow(mem memory.Allocator) (arrow.Table, error) {
	fields := make([]arrow.Field, 0, len(t.Columns))
	for _, name := range t.Columns {
		def, ok := columnDefs[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		fields = append(fields, arrow.Field{Name: name, Type: arrowType(def.kind), Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	arrays := make([]arrow.Array, 0, len(t.Columns))
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	for _, name := range t.Columns {
		def := columnDefs[name]
		switch def.kind {
		case colString:
			b := array.NewStringBuilder(mem)
			for i := range t.Rows {
				if v := def.str(&t.Rows[i]); v != nil {
					b.Append(*v)
				} else {
					b.AppendNull()
				}
			}
			arrays = append(arrays, b.NewArray())
			b.Release()
		case colBool:
			b := array.NewBooleanBuilder(mem)
			for i := range t.Rows {
				if v := def.bl(&t.Rows[i]); v != nil {
					b.Append(*v)
				} else {
					b.AppendNull()
				}
			}
			arrays = append(arrays, b.NewArray())
			b.Release()
		default:
			b := array.NewFloat64Builder(mem)
			for i := range t.Rows {
				if v := def.num(&t.Rows[i]); v != nil {
					b.Append(*v)
				} else {
					b.AppendNull()
				}
			}
			arrays = append(arrays, b.NewArray())
			b.Release()
		}
	}

	record := array.NewRecord(schema, arrays, int64(len(t.Rows)))
	defer record.Release()

	return array.NewTableFromRecords(schema, []arrow.Record{record}), nil
}
