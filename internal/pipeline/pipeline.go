// Package pipeline composes fetch, filter, key derivation and landing into
// one bronze-layer ingestion run.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seshjuansauce/polybot-data-etl/internal/landing"
	"github.com/seshjuansauce/polybot-data-etl/internal/market"
	"github.com/seshjuansauce/polybot-data-etl/internal/objectstore"
	"github.com/seshjuansauce/polybot-data-etl/internal/polymarket"
)

// metadata source tag: the Gamma API, as opposed to the CLOB API.
const metadataSource = "polymarket_gamma"

// Fetcher retrieves raw market records from the upstream listing endpoint.
type Fetcher interface {
	FetchMarkets(ctx context.Context, opts polymarket.FetchOptions) ([]polymarket.Record, error)
}

// Store lands columnar artifacts in the object store.
type Store interface {
	PutTable(ctx context.Context, key string, tbl arrow.Table, opts objectstore.TableOptions) error
	Bucket() string
}

// Config holds per-strategy run parameters.
type Config struct {
	StrategyID string
	Fetch      polymarket.FetchOptions
	Policy     market.Policy
}

// Result points downstream consumers at the landed artifact.
type Result struct {
	Table market.Table
	Key   string
	URI   string
}

// Pipeline is a single-shot bronze ingestion run. All state is run-local;
// the fetcher and store handles are shared and immutable.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	cfg     Config
	log     zerolog.Logger
}

func New(fetcher Fetcher, store Store, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		log:     log,
	}
}

// Run fetches, filters and lands one batch of markets, returning the table
// together with the storage key and s3 URI of the landed artifact.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("strategy", p.cfg.StrategyID).Logger()

	records, err := p.fetcher.FetchMarkets(ctx, p.cfg.Fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	log.Info().Int("records", len(records)).Msg("fetched raw markets")

	tbl := market.Filter(records, p.cfg.Policy)
	log.Info().Int("eligible", len(tbl.Rows)).Msg("filtered markets")

	// One captured instant drives both the day partition and the file
	// suffix, as well as the created_utc tag.
	now := time.Now().UTC()
	key := landing.BronzeMarketsKey(p.cfg.StrategyID, now)

	arrowTbl, err := tbl.Arrow(memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("build arrow table: %w", err)
	}
	defer arrowTbl.Release()

	metadata := map[string]string{
		"layer":       landing.StageBronze,
		"source":      metadataSource,
		"entity":      landing.EntityMarkets,
		"strategy":    p.cfg.StrategyID,
		"created_utc": now.Format(time.RFC3339),
		"rows":        strconv.Itoa(len(tbl.Rows)),
		"cols":        strconv.Itoa(len(tbl.Columns)),
		"run_id":      runID,
	}

	err = p.store.PutTable(ctx, key, arrowTbl, objectstore.TableOptions{
		Compression: "zstd",
		Metadata:    metadata,
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return nil, fmt.Errorf("land markets: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s", p.store.Bucket(), key)
	log.Info().Str("key", key).Str("uri", uri).Int("rows", len(tbl.Rows)).Msg("landed bronze markets")

	return &Result{Table: tbl, Key: key, URI: uri}, nil
}
