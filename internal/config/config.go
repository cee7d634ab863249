package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	R2         R2Config         `mapstructure:"r2"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PolymarketConfig holds Polymarket Gamma API configuration
type PolymarketConfig struct {
	GammaAPIURL    string        `mapstructure:"gamma_api_url"`
	MaxMarkets     int           `mapstructure:"max_markets"`
	PageLimit      int           `mapstructure:"page_limit"`
	Order          string        `mapstructure:"order"`
	Ascending      bool          `mapstructure:"ascending"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// R2Config holds object store credentials and bucket identity.
// Secrets are normally supplied through POLYETL_R2_* environment variables
// rather than the YAML file.
type R2Config struct {
	AccountID        string `mapstructure:"account_id"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	EndpointTemplate string `mapstructure:"endpoint_template"`
}

// PipelineConfig holds the trading-eligibility policy and run identity
type PipelineConfig struct {
	StrategyID   string  `mapstructure:"strategy_id"`
	MaxSpread    float64 `mapstructure:"max_spread"`
	MinLiquidity float64 `mapstructure:"min_liquidity"`
	MinVolume24h float64 `mapstructure:"min_volume_24h"`
	RequireLive  bool    `mapstructure:"require_live"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("POLYETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Polymarket defaults
	v.SetDefault("polymarket.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.max_markets", 500)
	v.SetDefault("polymarket.page_limit", 200)
	v.SetDefault("polymarket.order", "volume24hr")
	v.SetDefault("polymarket.ascending", false)
	v.SetDefault("polymarket.timeout", "30s")
	v.SetDefault("polymarket.max_retries", 3)
	v.SetDefault("polymarket.retry_delay_base", "1s")

	// R2 defaults; credentials have no defaults and must be supplied
	v.SetDefault("r2.account_id", "")
	v.SetDefault("r2.access_key_id", "")
	v.SetDefault("r2.secret_access_key", "")
	v.SetDefault("r2.bucket", "")
	v.SetDefault("r2.region", "auto")
	v.SetDefault("r2.endpoint_template", "https://{account_id}.r2.cloudflarestorage.com")

	// Pipeline defaults (strategy 0 thresholds)
	v.SetDefault("pipeline.strategy_id", "0")
	v.SetDefault("pipeline.max_spread", 0.03)
	v.SetDefault("pipeline.min_liquidity", 30000.0)
	v.SetDefault("pipeline.min_volume_24h", 50000.0)
	v.SetDefault("pipeline.require_live", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Polymarket config
	if c.Polymarket.GammaAPIURL == "" {
		return fmt.Errorf("polymarket.gamma_api_url is required")
	}
	if c.Polymarket.MaxMarkets < 1 {
		return fmt.Errorf("polymarket.max_markets must be at least 1")
	}
	if c.Polymarket.PageLimit < 1 || c.Polymarket.PageLimit > 1000 {
		return fmt.Errorf("polymarket.page_limit must be between 1 and 1000")
	}
	if c.Polymarket.Timeout <= 0 {
		return fmt.Errorf("polymarket.timeout must be positive")
	}
	if c.Polymarket.MaxRetries < 1 {
		return fmt.Errorf("polymarket.max_retries must be at least 1")
	}

	// Validate R2 config
	if c.R2.AccountID == "" {
		return fmt.Errorf("r2.account_id is required")
	}
	if c.R2.AccessKeyID == "" {
		return fmt.Errorf("r2.access_key_id is required")
	}
	if c.R2.SecretAccessKey == "" {
		return fmt.Errorf("r2.secret_access_key is required")
	}
	if c.R2.Bucket == "" {
		return fmt.Errorf("r2.bucket is required")
	}

	// Validate Pipeline config
	if c.Pipeline.StrategyID == "" {
		return fmt.Errorf("pipeline.strategy_id is required")
	}
	if c.Pipeline.MaxSpread <= 0 || c.Pipeline.MaxSpread > 1.0 {
		return fmt.Errorf("pipeline.max_spread must be between 0.0 and 1.0")
	}
	if c.Pipeline.MinLiquidity < 0 {
		return fmt.Errorf("pipeline.min_liquidity must not be negative")
	}
	if c.Pipeline.MinVolume24h < 0 {
		return fmt.Errorf("pipeline.min_volume_24h must not be negative")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
