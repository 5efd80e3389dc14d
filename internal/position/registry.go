// Package position implements the position registry (C4): a
// Symbol -> mutex-guarded ordered list of Position, hosting the tiered
// trailing-stop algorithm and the close path. The map's key set is built
// once at startup from the symbol universe and is read-only thereafter;
// each bucket is independently lockable, and there is no global lock.
package position

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/arthasyou/quantification/internal/symbol"
	"github.com/arthasyou/quantification/pkg/types"
)

// leveragedThreshold is the boundary at which the stop formula switches
// from anchoring on entry_price to anchoring on the position's
// highest/lowest price since open.
const leveragedThreshold = 1.09

// Closer dispatches the market close order when a stop fires. It is
// invoked WHILE the bucket lock is held, intentionally, to serialize
// stop-fire against operator-close for the same symbol. See SPEC_FULL.md
// §5.
type Closer interface {
	ClosePosition(ctx context.Context, pos types.Position) error
}

// bucket is one symbol's independently-lockable slot.
type bucket struct {
	mu        sync.Mutex
	positions []types.Position
}

// StopFireRecorder counts trailing stops that fired, for the ambient
// metrics registry. Optional: a Registry with no recorder attached
// simply skips the count.
type StopFireRecorder interface {
	IncStopFire(symbol, direction string)
}

// Registry is the symbol-sharded position registry.
type Registry struct {
	buckets map[string]*bucket
	closer  Closer
	logger  *slog.Logger
	metrics StopFireRecorder
}

// AttachMetrics wires a stop-fire counter into the registry. Safe to
// call once at startup; nil is a valid no-op value.
func (r *Registry) AttachMetrics(m StopFireRecorder) {
	r.metrics = m
}

// New builds a registry with one bucket per symbol in the given universe.
// If symbols is nil, the full default universe is used.
func New(symbols []string, closer Closer, logger *slog.Logger) *Registry {
	if symbols == nil {
		symbols = symbol.All()
	}
	r := &Registry{
		buckets: make(map[string]*bucket, len(symbols)),
		closer:  closer,
		logger:  logger,
	}
	for _, s := range symbols {
		r.buckets[symbol.Normalize(s)] = &bucket{}
	}
	return r
}

// Insert appends pos to its symbol's bucket. Fails with a "symbol ...
// not found" error if pos.Symbol is outside the universe; the error is a
// plain formatted error, with no distinct type or sentinel value.
func (r *Registry) Insert(pos types.Position) error {
	b, ok := r.buckets[symbol.Normalize(pos.Symbol)]
	if !ok {
		return fmt.Errorf("position: symbol %s not found", strings.ToUpper(pos.Symbol))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = append(b.positions, pos)
	return nil
}

// Reap drops all closed positions from sym's bucket. Must be called
// immediately before OnPrice on every tick so a freshly closed position
// does not re-trigger.
func (r *Registry) Reap(sym string) {
	b, ok := r.buckets[symbol.Normalize(sym)]
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.positions[:0]
	for _, p := range b.positions {
		if !p.IsClosed {
			kept = append(kept, p)
		}
	}
	b.positions = kept
}

// Remove drops the unique entry matching (user, direction) in sym's
// bucket. No-op if absent. Symbol lookup is case-insensitive.
func (r *Registry) Remove(sym, userID string, dir types.Direction) {
	b, ok := r.buckets[symbol.Normalize(sym)]
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range b.positions {
		if p.UserID == userID && p.Direction == dir {
			b.positions = append(b.positions[:i], b.positions[i+1:]...)
			return
		}
	}
}

// GetOne clones the first (typically only) position matching
// (symbol, direction, user).
func (r *Registry) GetOne(sym string, dir types.Direction, userID string) (types.Position, bool) {
	b, ok := r.buckets[symbol.Normalize(sym)]
	if !ok {
		return types.Position{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.positions {
		if p.UserID == userID && p.Direction == dir {
			return p, true
		}
	}
	return types.Position{}, false
}

// GetAllForSymbol returns a snapshot clone of every position in sym's
// bucket, for read APIs.
func (r *Registry) GetAllForSymbol(sym string) []types.Position {
	b, ok := r.buckets[symbol.Normalize(sym)]
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Position, len(b.positions))
	copy(out, b.positions)
	return out
}

// OnPrice applies a price tick to every position in sym's bucket, under
// that bucket's lock. Ordering within the bucket is stable; no position
// is skipped. The lock is held across the full iteration, including any
// outbound close dispatch — see DESIGN.md "mutex held across await".
func (r *Registry) OnPrice(ctx context.Context, sym string, bid, ask string) {
	b, ok := r.buckets[symbol.Normalize(sym)]
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.positions {
		r.updatePrice(ctx, &b.positions[i], bid, ask)
	}
}

// updatePrice runs the trailing-stop algorithm for a single position
// against one tick. See spec.md §4.1 for the authoritative description;
// this implementation follows it literally, including the two documented
// open questions (dual reference price, sentinel tier duplication).
func (r *Registry) updatePrice(ctx context.Context, pos *types.Position, bid, ask string) {
	if pos.IsClosed {
		return
	}

	bidF, bidErr := parseFloat(bid)
	askF, askErr := parseFloat(ask)
	if bidErr != nil || askErr != nil {
		return
	}

	// step 1: choose the reference price.
	var ref float64
	if pos.Direction == types.Long {
		ref = askF
	} else {
		ref = bidF
	}

	// step 2: update highest/lowest and derive pnl_pct, or skip to breach
	// check if this tick didn't set a new extreme.
	var pnlPct float64
	updated := false
	if pos.Direction == types.Long {
		if ref > pos.HighestPrice {
			pos.HighestPrice = ref
			pnlPct = (pos.HighestPrice - pos.EntryPrice) / pos.EntryPrice
			updated = true
		}
	} else {
		if ref < pos.LowestPrice {
			pos.LowestPrice = ref
			pnlPct = (pos.EntryPrice - pos.LowestPrice) / pos.EntryPrice
			updated = true
		}
	}

	if updated {
		leveraged := pnlPct * pos.Leverage

		// step 3: consume historical tiers, then pick the active one.
		a := consumeAndSelect(&pos.Strategies, leveraged)

		// step 4: compute the new stop and replace the old one. The value
		// is not compared with the previous stop, so it can move back
		// (e.g. when leveraged crosses leveragedThreshold within one tier).
		if a != 0 {
			var newStop float64
			if pos.Direction == types.Long {
				if leveraged >= leveragedThreshold {
					newStop = pos.HighestPrice * (1 - a/pos.Leverage)
				} else {
					newStop = pos.EntryPrice * (1 + a/pos.Leverage)
				}
			} else {
				if leveraged >= leveragedThreshold {
					newStop = pos.LowestPrice * (1 + a/pos.Leverage)
				} else {
					newStop = pos.EntryPrice * (1 - a/pos.Leverage)
				}
			}
			pos.StopLoss = newStop
		}
	}

	// step 5: breach check against the same ref.
	var breached bool
	if pos.Direction == types.Long {
		breached = ref <= pos.StopLoss
	} else {
		breached = ref >= pos.StopLoss
	}

	if breached && !pos.IsClosed {
		pos.IsClosed = true
		if r.metrics != nil {
			r.metrics.IncStopFire(pos.Symbol, pos.Direction.String())
		}
		if r.closer != nil {
			if err := r.closer.ClosePosition(ctx, *pos); err != nil {
				if r.logger != nil {
					r.logger.Error("stop-fire close dispatch failed",
						"symbol", pos.Symbol,
						"user_id", pos.UserID,
						"direction", pos.Direction.String(),
						"order_id", pos.OrderID,
						"error", err,
					)
				}
			}
		}
	}
}

// consumeAndSelect removes every tier with Max <= leveraged (their range
// has been fully passed), then returns the Adjustment of the first
// remaining tier whose [Min, Max) contains leveraged, or 0 if none
// matches. The matched tier is left in the list: it can still fire again
// on a later tick whose leveraged value falls back into the same range.
func consumeAndSelect(tiers *[]types.Tier, leveraged float64) float64 {
	kept := (*tiers)[:0]
	var selected = math.NaN()
	found := false

	for _, t := range *tiers {
		if t.Max <= leveraged {
			continue // historical, drop
		}
		if !found && leveraged >= t.Min && leveraged < t.Max {
			selected = t.Adjustment
			found = true
		}
		kept = append(kept, t)
	}

	*tiers = kept
	if !found {
		return 0
	}
	return selected
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
