// Package types defines the shared data structures used across the position
// engine — direction, strategy tiers, positions, sessions, and the shapes
// exchanged with the exchange adapter. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Direction
// ————————————————————————————————————————————————————————————————————————

// Direction is a sum type: a position is either Long (expects price to
// rise) or Short (expects price to fall). Never encode this as a magic
// string — always go through String/ParseDirection.
type Direction int

const (
	Long Direction = iota
	Short
)

// String renders the canonical form ("Long"/"Short").
func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "Unknown"
	}
}

// Exchange renders the venue's form ("LONG"/"SHORT"), used as the
// positionSide parameter on order placement.
func (d Direction) Exchange() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Side returns the venue order side ("BUY"/"SELL") for opening a position
// in this direction.
func (d Direction) Side() string {
	if d == Long {
		return "BUY"
	}
	return "SELL"
}

// CloseSide returns the venue order side for closing a position in this
// direction — the inverse of Side.
func (d Direction) CloseSide() string {
	if d == Long {
		return "SELL"
	}
	return "BUY"
}

// ParseDirection parses "Long"/"Short" (or their exchange-form
// "LONG"/"SHORT") case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// ————————————————————————————————————————————————————————————————————————
// Price
// ————————————————————————————————————————————————————————————————————————

// Price is a per-symbol top-of-book snapshot. Both sides are kept as
// trimmed decimal strings, not floats, since they are emitted verbatim
// from the exchange feed. Monotonicity across ticks is not assumed.
type Price struct {
	Bid string
	Ask string
}

// SentinelPrice is the value a symbol holds before its first tick.
var SentinelPrice = Price{Bid: "0", Ask: "0"}

// ————————————————————————————————————————————————————————————————————————
// Strategy tiers
// ————————————————————————————————————————————————————————————————————————

// Tier is a half-open range [Min, Max) over leveraged pnl, with an
// adjustment factor applied to the stop price when leveraged pnl falls
// inside the range. Max == +Inf represents an open-ended upper tier.
// A tier is consumable: once a position's leveraged pnl reaches its Max,
// it is removed from that position's owned tier list and never re-enters
// it. A tier that matched but whose Max has not been reached stays in
// the list and can match again on a later tick.
type Tier struct {
	Min        float64
	Max        float64 // math.Inf(1) for an unbounded tier
	Adjustment float64
}

// SentinelTier is appended, unconditionally, to every position's owned
// tier list at construction time — in addition to whatever the chosen
// strategy table already contains. See DESIGN.md "sentinel tier
// semantics": this can duplicate a tier the default table already has.
var SentinelTier = Tier{Min: 1.1, Max: math.Inf(1), Adjustment: 0.1}

// StrategyConfig holds a user's two named tier tables.
type StrategyConfig struct {
	S1 []Tier
	S2 []Tier
}

// CloneTiers returns an independent copy of a tier slice, so a position's
// owned table can be consumed without mutating the strategy store's copy.
func CloneTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// DefaultStrategyConfig is the built-in 11-tier table new users are
// seeded with at onboarding. It is not substituted for a missing config
// at lookup time: `strategy.Store.GetSpec` fails if a user has none.
// S1 and S2 start out identical; callers may diverge them via the
// strategy store's Update operation.
func DefaultStrategyConfig() StrategyConfig {
	tiers := []Tier{
		{Min: 0.10, Max: 0.19, Adjustment: 0.02},
		{Min: 0.20, Max: 0.29, Adjustment: 0.04},
		{Min: 0.30, Max: 0.39, Adjustment: 0.09},
		{Min: 0.40, Max: 0.49, Adjustment: 0.16},
		{Min: 0.50, Max: 0.59, Adjustment: 0.25},
		{Min: 0.60, Max: 0.69, Adjustment: 0.36},
		{Min: 0.70, Max: 0.79, Adjustment: 0.49},
		{Min: 0.7999, Max: 0.89, Adjustment: 0.64},
		{Min: 0.8999, Max: 1.0, Adjustment: 0.81},
		{Min: 0.9999, Max: 1.1, Adjustment: 0.90},
		{Min: 1.1, Max: math.Inf(1), Adjustment: 0.10},
	}
	return StrategyConfig{S1: CloneTiers(tiers), S2: CloneTiers(tiers)}
}

// ————————————————————————————————————————————————————————————————————————
// Position
// ————————————————————————————————————————————————————————————————————————

// Position is the central entity: one open leveraged exposure on one
// symbol in one direction for one user. It is mutated exclusively inside
// the position registry's per-symbol critical section (see
// internal/position). Once IsClosed, the record is immutable and
// eligible for reaping.
type Position struct {
	OrderID      uint64
	UserID       string
	Symbol       string
	Direction    Direction
	EntryPrice   float64
	Leverage     float64
	Quantity     string // venue-precision aligned decimal string
	StopLoss     float64
	HighestPrice float64 // since open; Long uses it
	LowestPrice  float64 // since open; Short uses it
	Strategies   []Tier  // owned, consumed as tiers trigger
	IsClosed     bool
	APIKey       string // copied from session at open time
	APISecret    string
}

// NewPosition constructs a Position with the opening-stop formula applied
// and the chosen tier table (plus the unconditional sentinel tier)
// installed as its owned strategy list.
//
//	Long:  stop_loss = entry_price * (1 - stopLossPercent/leverage)
//	Short: stop_loss = entry_price * (1 + stopLossPercent/leverage)
func NewPosition(orderID uint64, userID, symbol string, dir Direction, entryPrice, leverage float64,
	quantity string, stopLossPercent float64, tiers []Tier, apiKey, apiSecret string) Position {
	var stop float64
	if dir == Long {
		stop = entryPrice * (1 - stopLossPercent/leverage)
	} else {
		stop = entryPrice * (1 + stopLossPercent/leverage)
	}

	owned := CloneTiers(tiers)
	owned = append(owned, SentinelTier)

	return Position{
		OrderID:      orderID,
		UserID:       userID,
		Symbol:       symbol,
		Direction:    dir,
		EntryPrice:   entryPrice,
		Leverage:     leverage,
		Quantity:     quantity,
		StopLoss:     stop,
		HighestPrice: entryPrice,
		LowestPrice:  entryPrice,
		Strategies:   owned,
		APIKey:       apiKey,
		APISecret:    apiSecret,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Session: credentials and profile
// ————————————————————————————————————————————————————————————————————————

// Credentials are the per-user venue API key/secret pair held in memory
// for the duration of a session.
type Credentials struct {
	UserID string
	Key    string
	Secret string
}

// Profile is the lightweight per-user record tracked alongside
// credentials: an agent id (for fee attribution) and a running balance.
type Profile struct {
	UserID  string
	AgentID string
	Balance decimal.Decimal
}

// FeeRecord is emitted by the orchestrator's Close operation and handed
// to the (out-of-scope) persistence layer as an upsert-shaped blob.
type FeeRecord struct {
	UserID  string
	AgentID string
	Amount  decimal.Decimal
}

// ————————————————————————————————————————————————————————————————————————
// Exchange request/response shapes
// ————————————————————————————————————————————————————————————————————————

// MarketOrderRequest is the input to ExchangeClient.PlaceMarketOrder.
type MarketOrderRequest struct {
	Symbol       string
	Side         string // "BUY"/"SELL"
	PositionSide string // "LONG"/"SHORT"
	Quantity     string
	ClientOrderID string // idempotency key, see internal/exchange
}

// OrderResult is the response shape for PlaceMarketOrder/QueryOrder.
type OrderResult struct {
	OrderID  uint64
	AvgPrice string
	Status   string
}

// TradeRecord is one fill row from QueryTrades, used for fee
// reconciliation on close.
type TradeRecord struct {
	OrderID     uint64
	RealizedPnL decimal.Decimal
	Commission  decimal.Decimal
	Time        time.Time
}

// RiskRow is one row from QueryRisk (the venue's positionRisk endpoint).
type RiskRow struct {
	Symbol           string
	PositionSide     string
	PositionAmt      string
	EntryPrice       string
	IsolatedWallet   string
	LiquidationPrice string
	UpdateTime       time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Orchestrator request shapes
// ————————————————————————————————————————————————————————————————————————

// OpenRequest is the input to the trade orchestrator's Open operation.
type OpenRequest struct {
	Symbol          string
	Direction       Direction
	Leverage        float64
	Margin          float64
	StopLossPercent float64
	StrategyID      int // 1 or 2, selects S1 or S2
}

// CloseRequest is the input to the trade orchestrator's Close operation.
type CloseRequest struct {
	Symbol    string
	Direction Direction
}

// RiskData is one row of the orchestrator's Risk response: registry
// state where available, falling back to the venue's own risk row.
type RiskData struct {
	Symbol     string
	Direction  Direction
	Margin     string
	EntryPrice string
	StopPrice  string
	Quantity   string
	UpdateTime time.Time
}
