package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncStopFireIncrementsLabeledCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncStopFire("btcusdt", "Long")
	m.IncStopFire("btcusdt", "Long")
	m.IncStopFire("ethusdt", "Short")

	if got := testutil.ToFloat64(m.StopFires.WithLabelValues("btcusdt", "Long")); got != 2 {
		t.Errorf("StopFires{btcusdt,Long} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.StopFires.WithLabelValues("ethusdt", "Short")); got != 1 {
		t.Errorf("StopFires{ethusdt,Short} = %v, want 1", got)
	}
}

func TestIncFeedReconnectIncrementsPerSymbol(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncFeedReconnect("btcusdt")
	m.IncFeedReconnect("btcusdt")
	m.IncFeedReconnect("btcusdt")

	if got := testutil.ToFloat64(m.FeedReconnects.WithLabelValues("btcusdt")); got != 3 {
		t.Errorf("FeedReconnects{btcusdt} = %v, want 3", got)
	}
}

func TestIncOrchestratorCallSeparatesOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncOrchestratorCall("open", "ok")
	m.IncOrchestratorCall("open", "error")
	m.IncOrchestratorCall("open", "ok")

	if got := testutil.ToFloat64(m.OrchestratorCalls.WithLabelValues("open", "ok")); got != 2 {
		t.Errorf("OrchestratorCalls{open,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OrchestratorCalls.WithLabelValues("open", "error")); got != 1 {
		t.Errorf("OrchestratorCalls{open,error} = %v, want 1", got)
	}
}

func TestNewRegistersAgainstGivenRegistryNotDefault(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	// a vector with no children gathers no family, so touch one of each.
	m.IncStopFire("btcusdt", "Long")
	m.IncFeedReconnect("btcusdt")
	m.IncOrchestratorCall("open", "ok")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	if len(families) != 3 {
		t.Errorf("Gather() returned %d metric families, want 3", len(families))
	}
}
