// Package config defines all configuration for the position engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via QUANT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun   bool           `mapstructure:"dry_run"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Symbols  []string       `mapstructure:"symbols"` // optional override of the default universe
	Feed     FeedConfig     `mapstructure:"feed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExchangeConfig holds the venue's REST/WS endpoints and an account API
// key/secret. Validate requires the key/secret unless DryRun is set; no
// other component reads them (orders use per-user session credentials).
type ExchangeConfig struct {
	RESTBaseURL string        `mapstructure:"rest_base_url"`
	WSBaseURL   string        `mapstructure:"ws_base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retry_count"`
	APIKey      string        `mapstructure:"api_key"`
	APISecret   string        `mapstructure:"api_secret"`
}

// FeedConfig holds the market feed's read deadline and reconnect sleep.
// Load fills in 30s/5s defaults; cmd/engine does not pass these values to
// feed.New, and the feed uses its own fixed 30s/5s values.
type FeedConfig struct {
	ReadDeadline   time.Duration `mapstructure:"read_deadline"`
	ReconnectSleep time.Duration `mapstructure:"reconnect_sleep"`
}

// LoggingConfig controls the slog handler chosen at startup.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: QUANT_EXCHANGE_API_KEY, QUANT_EXCHANGE_API_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("QUANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("QUANT_EXCHANGE_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("QUANT_EXCHANGE_API_SECRET"); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if os.Getenv("QUANT_DRY_RUN") == "true" || os.Getenv("QUANT_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Exchange.Timeout == 0 {
		cfg.Exchange.Timeout = 10 * time.Second
	}
	if cfg.Exchange.RetryCount == 0 {
		cfg.Exchange.RetryCount = 3
	}
	if cfg.Feed.ReadDeadline == 0 {
		cfg.Feed.ReadDeadline = 30 * time.Second
	}
	if cfg.Feed.ReconnectSleep == 0 {
		cfg.Feed.ReconnectSleep = 5 * time.Second
	}
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Exchange.RESTBaseURL == "" {
		return fmt.Errorf("exchange.rest_base_url is required")
	}
	if c.Exchange.WSBaseURL == "" {
		return fmt.Errorf("exchange.ws_base_url is required")
	}
	if !c.DryRun {
		if c.Exchange.APIKey == "" {
			return fmt.Errorf("exchange.api_key is required (set QUANT_EXCHANGE_API_KEY) unless dry_run is true")
		}
		if c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange.api_secret is required (set QUANT_EXCHANGE_API_SECRET) unless dry_run is true")
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
