// Package priceboard is the per-symbol latest (bid, ask) price book (C2).
// It is updated by the market feed (C6) and read by the position registry
// (C4) and the trade orchestrator (C8).
package priceboard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/arthasyou/quantification/internal/symbol"
	"github.com/arthasyou/quantification/pkg/types"
)

// Board holds the latest price for every symbol in the universe. A single
// RWMutex guards the whole map: reads share it, and an Update excludes
// every other read or update, whatever the symbol.
type Board struct {
	mu     sync.RWMutex
	prices map[string]types.Price
}

// New builds a board pre-populated with the sentinel price for every
// symbol in the given universe.
func New(symbols []string) *Board {
	b := &Board{prices: make(map[string]types.Price, len(symbols))}
	for _, s := range symbols {
		b.prices[symbol.Normalize(s)] = types.SentinelPrice
	}
	return b
}

// Update sets the latest price for sym. It is a no-op error if sym is not
// part of the universe the board was built with.
func (b *Board) Update(sym string, p types.Price) error {
	key := symbol.Normalize(sym)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.prices[key]; !ok {
		return fmt.Errorf("priceboard: symbol %s not found", strings.ToUpper(sym))
	}
	b.prices[key] = p
	return nil
}

// Get returns the latest price for sym.
func (b *Board) Get(sym string) (types.Price, error) {
	key := symbol.Normalize(sym)

	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.prices[key]
	if !ok {
		return types.Price{}, fmt.Errorf("priceboard: symbol %s not found", strings.ToUpper(sym))
	}
	return p, nil
}
