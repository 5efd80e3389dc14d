package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

const minimalYAML = `
exchange:
  rest_base_url: https://fapi.binance.com
  ws_base_url: wss://fstream.binance.com
dry_run: true
`

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, minimalYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Exchange.Timeout != 10*time.Second {
		t.Errorf("Exchange.Timeout = %v, want 10s default", cfg.Exchange.Timeout)
	}
	if cfg.Exchange.RetryCount != 3 {
		t.Errorf("Exchange.RetryCount = %v, want 3 default", cfg.Exchange.RetryCount)
	}
	if cfg.Feed.ReadDeadline != 30*time.Second {
		t.Errorf("Feed.ReadDeadline = %v, want 30s default", cfg.Feed.ReadDeadline)
	}
	if cfg.Feed.ReconnectSleep != 5*time.Second {
		t.Errorf("Feed.ReconnectSleep = %v, want 5s default", cfg.Feed.ReconnectSleep)
	}
}

func TestLoadEnvOverridesAPICredentials(t *testing.T) {
	path := writeConfigFile(t, minimalYAML)

	t.Setenv("QUANT_EXCHANGE_API_KEY", "envkey")
	t.Setenv("QUANT_EXCHANGE_API_SECRET", "envsecret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "envkey" || cfg.Exchange.APISecret != "envsecret" {
		t.Errorf("credentials = %+v, want env overrides applied", cfg.Exchange)
	}
}

func TestValidateRequiresBaseURLs(t *testing.T) {
	t.Parallel()

	cfg := &Config{DryRun: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing base URLs")
	}
}

func TestValidateRequiresCredentialsUnlessDryRun(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Exchange: ExchangeConfig{RESTBaseURL: "https://x", WSBaseURL: "wss://x"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing credentials when dry_run is false")
	}

	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with dry_run=true and no credentials: %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		DryRun:   true,
		Exchange: ExchangeConfig{RESTBaseURL: "https://x", WSBaseURL: "wss://x"},
		Logging:  LoggingConfig{Format: "xml"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown logging format")
	}
}
