// Package landing builds deterministic partition keys for landed artifacts.
package landing

import (
	"fmt"
	"time"
)

const (
	StageBronze      = "bronze"
	SourcePolymarket = "polymarket"
	EntityMarkets    = "markets"
)

// Key derives the storage key for one ingestion run:
//
//	{stage}/{source}/{entity}/strategy={id}/dt={YYYY-MM-DD}/{entity}_{YYYYMMDD_HHMMSS}.parquet
//
// It is a pure function of its inputs. The caller must capture the run
// timestamp exactly once so the day partition and the file suffix agree;
// the timestamp is always rendered in UTC.
func Key(stage, source, entity, strategyID string, t time.Time) string {
	t = t.UTC()
	day := t.Format("2006-01-02")
	ts := t.Format("20060102_150405")
	return fmt.Sprintf("%s/%s/%s/strategy=%s/dt=%s/%s_%s.parquet",
		stage, source, entity, strategyID, day, entity, ts)
}

// BronzeMarketsKey is the bronze-layer key for a Polymarket markets landing.
func BronzeMarketsKey(strategyID string, t time.Time) string {
	return Key(StageBronze, SourcePolymarket, EntityMarkets, strategyID, t)
}
