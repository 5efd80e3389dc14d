package priceboard

import (
	"testing"

	"github.com/arthasyou/quantification/pkg/types"
)

func TestNewSeedsSentinel(t *testing.T) {
	t.Parallel()

	b := New([]string{"btcusdt"})
	p, err := b.Get("btcusdt")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p != types.SentinelPrice {
		t.Errorf("Get(\"btcusdt\") = %+v, want sentinel %+v", p, types.SentinelPrice)
	}
}

func TestUpdateAndGetIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	b := New([]string{"btcusdt"})
	if err := b.Update("BTCUSDT", types.Price{Bid: "100", Ask: "101"}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	p, err := b.Get("btcUsdt")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.Bid != "100" || p.Ask != "101" {
		t.Errorf("Get after Update = %+v, want {100 101}", p)
	}
}

func TestUpdateUnknownSymbol(t *testing.T) {
	t.Parallel()

	b := New([]string{"btcusdt"})
	if err := b.Update("ethusdt", types.Price{Bid: "1", Ask: "2"}); err == nil {
		t.Fatal("expected error updating unknown symbol")
	}
}

func TestGetUnknownSymbol(t *testing.T) {
	t.Parallel()

	b := New([]string{"btcusdt"})
	if _, err := b.Get("ethusdt"); err == nil {
		t.Fatal("expected error getting unknown symbol")
	}
}
