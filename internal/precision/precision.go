// Package precision is the per-symbol integer quantity precision table
// (C3), loaded once at startup from the exchange's exchangeInfo endpoint.
package precision

import (
	"fmt"
	"strings"
	"sync"
)

// Table holds the quantity precision for every known symbol.
type Table struct {
	mu    sync.RWMutex
	value map[string]int
}

// New returns an empty table; call Load to populate it.
func New() *Table {
	return &Table{value: make(map[string]int)}
}

// Load replaces the table's contents with the given symbol->precision
// map, as returned by a single batched exchangeInfo call.
func (t *Table) Load(precisions map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.value = make(map[string]int, len(precisions))
	for sym, p := range precisions {
		t.value[strings.ToLower(sym)] = p
	}
}

// Get returns the quantity precision for sym, and whether it was found.
func (t *Table) Get(sym string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.value[strings.ToLower(sym)]
	return p, ok
}

// MustGet is a convenience wrapper that turns a missing-symbol lookup
// into an error instead of a boolean, for callers that treat an unknown
// symbol as a request-validation failure.
func (t *Table) MustGet(sym string) (int, error) {
	p, ok := t.Get(sym)
	if !ok {
		return 0, fmt.Errorf("precision: symbol %s not found", strings.ToUpper(sym))
	}
	return p, nil
}
