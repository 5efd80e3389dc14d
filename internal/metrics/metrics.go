// Package metrics exposes the engine's Prometheus counters:
//   - engine_stop_fires_total{symbol,direction}   — trailing stops that fired
//   - engine_feed_reconnects_total{symbol}        — market feed reconnect cycles
//   - engine_orchestrator_calls_total{operation,result} — Open/Close/Risk calls
//
// Registered at construction and served by the HTTP handler started in
// cmd/engine/main.go at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the engine's counters behind a small constructor so
// tests can build an isolated registry instead of touching the global
// default one.
type Metrics struct {
	StopFires         *prometheus.CounterVec
	FeedReconnects    *prometheus.CounterVec
	OrchestratorCalls *prometheus.CounterVec
}

// New creates the counters and registers them against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StopFires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_stop_fires_total",
				Help: "Trailing stops that fired and dispatched a close",
			},
			[]string{"symbol", "direction"},
		),
		FeedReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_feed_reconnects_total",
				Help: "Market feed reconnect cycles per symbol",
			},
			[]string{"symbol"},
		),
		OrchestratorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_orchestrator_calls_total",
				Help: "Open/Close/Risk calls by outcome",
			},
			[]string{"operation", "result"},
		),
	}

	reg.MustRegister(m.StopFires, m.FeedReconnects, m.OrchestratorCalls)
	return m
}

// IncStopFire records one trailing-stop fire for symbol/direction.
func (m *Metrics) IncStopFire(symbol, direction string) {
	m.StopFires.WithLabelValues(symbol, direction).Inc()
}

// IncFeedReconnect records one market feed reconnect cycle for symbol.
func (m *Metrics) IncFeedReconnect(symbol string) {
	m.FeedReconnects.WithLabelValues(symbol).Inc()
}

// IncOrchestratorCall records one Open/Close/Risk call outcome.
func (m *Metrics) IncOrchestratorCall(operation, result string) {
	m.OrchestratorCalls.WithLabelValues(operation, result).Inc()
}
