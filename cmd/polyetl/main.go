package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/seshjuansauce/polybot-data-etl/internal/config"
	"github.com/seshjuansauce/polybot-data-etl/internal/logger"
	"github.com/seshjuansauce/polybot-data-etl/internal/market"
	"github.com/seshjuansauce/polybot-data-etl/internal/objectstore"
	"github.com/seshjuansauce/polybot-data-etl/internal/pipeline"
	"github.com/seshjuansauce/polybot-data-etl/internal/polymarket"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	rootLog := logger.L()
	rootLog.Info().Str("config", *configPath).Msg("configuration loaded")

	store, err := objectstore.New(objectstore.Config{
		AccountID:        cfg.R2.AccountID,
		AccessKeyID:      cfg.R2.AccessKeyID,
		SecretAccessKey:  cfg.R2.SecretAccessKey,
		Bucket:           cfg.R2.Bucket,
		Region:           cfg.R2.Region,
		EndpointTemplate: cfg.R2.EndpointTemplate,
	})
	if err != nil {
		rootLog.Fatal().Err(err).Msg("failed to initialize object store")
	}

	client := polymarket.NewClient(
		cfg.Polymarket.GammaAPIURL,
		cfg.Polymarket.Timeout,
		polymarket.ClientConfig{
			MaxRetries:     cfg.Polymarket.MaxRetries,
			RetryDelayBase: cfg.Polymarket.RetryDelayBase,
		},
		logger.With("polymarket"),
	)

	p := pipeline.New(client, store, pipeline.Config{
		StrategyID: cfg.Pipeline.StrategyID,
		Fetch: polymarket.FetchOptions{
			MaxMarkets: cfg.Polymarket.MaxMarkets,
			PageLimit:  cfg.Polymarket.PageLimit,
			Order:      cfg.Polymarket.Order,
			Ascending:  cfg.Polymarket.Ascending,
		},
		Policy: market.Policy{
			MaxSpread:    cfg.Pipeline.MaxSpread,
			MinLiquidity: cfg.Pipeline.MinLiquidity,
			MinVolume24h: cfg.Pipeline.MinVolume24h,
			RequireLive:  cfg.Pipeline.RequireLive,
		},
	}, logger.With("pipeline"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		rootLog.Info().Msg("shutdown signal received, aborting run")
		cancel()
	}()

	result, err := p.Run(ctx)
	if err != nil {
		rootLog.Fatal().Err(err).Msg("ingestion run failed")
	}

	rootLog.Info().
		Str("key", result.Key).
		Str("uri", result.URI).
		Int("rows", len(result.Table.Rows)).
		Int("cols", len(result.Table.Columns)).
		Msg("ingestion run complete")
}
