// Position engine — tiered trailing-stop management for leveraged
// perpetual futures positions.
//
// Architecture:
//
//	main.go                      — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/symbol              — fixed 27-symbol trading universe (C1)
//	internal/priceboard          — per-symbol latest (bid, ask) (C2)
//	internal/precision           — per-symbol quantity precision table (C3)
//	internal/position            — position registry + tiered trailing-stop algorithm (C4)
//	internal/strategy            — per-user strategy tier tables (C5)
//	internal/feed                — one reconnecting WebSocket per symbol (C6)
//	internal/session             — credential and profile stores (C7)
//	internal/orchestrator        — open/close/risk glue (C8)
//	internal/exchange            — signed REST adapter + rate limiting (C9)
//	internal/config              — configuration loading (C10)
//	internal/metrics             — Prometheus counters
//
// The engine holds no HTTP surface of its own in this repo beyond
// /metrics; handlers invoking the orchestrator's Open/Close/Risk
// operations are out of scope (see DESIGN.md).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arthasyou/quantification/internal/config"
	"github.com/arthasyou/quantification/internal/exchange"
	"github.com/arthasyou/quantification/internal/feed"
	"github.com/arthasyou/quantification/internal/metrics"
	"github.com/arthasyou/quantification/internal/orchestrator"
	"github.com/arthasyou/quantification/internal/position"
	"github.com/arthasyou/quantification/internal/precision"
	"github.com/arthasyou/quantification/internal/priceboard"
	"github.com/arthasyou/quantification/internal/session"
	"github.com/arthasyou/quantification/internal/strategy"
	"github.com/arthasyou/quantification/internal/symbol"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("QUANT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	symbols := symbol.All()
	if len(cfg.Symbols) > 0 {
		symbols = cfg.Symbols
	}

	board := priceboard.New(symbols)
	precisions := precision.New()
	strategies := strategy.New()
	credentials := session.NewCredentialStore()
	profiles := session.NewProfileStore()

	venue := exchange.NewClient(cfg.Exchange.RESTBaseURL, cfg.Exchange.Timeout, cfg.Exchange.RetryCount, cfg.DryRun, logger)

	reg := prometheus.NewRegistry()
	mtx := metrics.New(reg)

	info, err := venue.ExchangeInfo(context.Background())
	if err != nil {
		logger.Error("failed to load exchange precision table", "error", err)
		os.Exit(1)
	}
	precisions.Load(info)

	stopCloser := orchestrator.NewStopCloser(venue, logger)
	registry := position.New(symbols, stopCloser, logger)
	registry.AttachMetrics(mtx)

	orch := orchestrator.New(board, precisions, strategies, registry, credentials, profiles, venue, logger)
	orch.AttachMetrics(mtx)

	mf := feed.New(cfg.Exchange.WSBaseURL, symbols, board, registry, logger)
	mf.AttachMetrics(mtx)

	ctx, cancel := context.WithCancel(context.Background())

	go mf.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: ":9090", Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("position engine started",
		"symbols", len(symbols),
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop metrics server", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
