// Package orchestrator implements the trade orchestrator (C8): the glue
// invoked by HTTP handlers to open a position, close one, or report risk.
// It is the only component that calls the exchange adapter for mutating
// operations; every other component only ever reads or mutates local
// state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arthasyou/quantification/internal/exchange"
	"github.com/arthasyou/quantification/internal/precision"
	"github.com/arthasyou/quantification/internal/priceboard"
	"github.com/arthasyou/quantification/internal/quant"
	"github.com/arthasyou/quantification/internal/session"
	"github.com/arthasyou/quantification/internal/strategy"
	"github.com/arthasyou/quantification/pkg/types"
)

// closeCommissionRate is the fee charged on close, applied to the sum of
// |realized_pnl| across the closing order's fills.
const closeCommissionRate = "0.005"

// Registry is the subset of the position registry the orchestrator
// depends on.
type Registry interface {
	Insert(pos types.Position) error
	Remove(sym, userID string, dir types.Direction)
	GetOne(sym string, dir types.Direction, userID string) (types.Position, bool)
}

// CallRecorder counts Open/Close/Risk calls by outcome, for the ambient
// metrics registry. Optional: an Orchestrator with no recorder attached
// simply skips the count.
type CallRecorder interface {
	IncOrchestratorCall(operation, result string)
}

// Orchestrator wires the price board, precision table, strategy store,
// session stores, position registry, and exchange adapter together.
type Orchestrator struct {
	board       *priceboard.Board
	precisions  *precision.Table
	strategies  *strategy.Store
	registry    Registry
	credentials *session.CredentialStore
	profiles    *session.ProfileStore
	venue       exchange.ExchangeClient
	logger      *slog.Logger
	metrics     CallRecorder
}

// AttachMetrics wires a call-outcome counter into the orchestrator. Safe
// to call once at startup; nil is a valid no-op value.
func (o *Orchestrator) AttachMetrics(m CallRecorder) {
	o.metrics = m
}

func (o *Orchestrator) recordCall(operation string, err error) {
	if o.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.metrics.IncOrchestratorCall(operation, result)
}

// New builds an Orchestrator from its dependencies.
func New(
	board *priceboard.Board,
	precisions *precision.Table,
	strategies *strategy.Store,
	registry Registry,
	credentials *session.CredentialStore,
	profiles *session.ProfileStore,
	venue exchange.ExchangeClient,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		board:       board,
		precisions:  precisions,
		strategies:  strategies,
		registry:    registry,
		credentials: credentials,
		profiles:    profiles,
		venue:       venue,
		logger:      logger,
	}
}

// Open sizes and places the opening market order, then inserts the
// resulting Position into the registry.
func (o *Orchestrator) Open(ctx context.Context, userID string, req types.OpenRequest) (pos types.Position, err error) {
	defer func() { o.recordCall("open", err) }()

	price, err := o.board.Get(req.Symbol)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: INVALID_SYMBOL: %w", err)
	}

	prec, err := o.precisions.MustGet(req.Symbol)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: INVALID_SYMBOL: %w", err)
	}

	tiers, err := o.strategies.GetSpec(userID, req.StrategyID)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: %w", err)
	}

	creds, ok := o.credentials.Get(userID)
	if !ok {
		return types.Position{}, fmt.Errorf("open: no credentials for user %s", userID)
	}

	var positionSide, referenceStr string
	if req.Direction == types.Long {
		positionSide = types.Long.Exchange()
		referenceStr = price.Ask
	} else {
		positionSide = types.Short.Exchange()
		referenceStr = price.Bid
	}

	reference, err := strconv.ParseFloat(referenceStr, 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: reference price %q: %w", referenceStr, err)
	}

	quantity := quant.CalculateQuantity(req.Margin, req.Leverage, reference, prec)

	if err := o.venue.SetLeverage(ctx, creds, strings.ToUpper(req.Symbol), int(req.Leverage)); err != nil {
		return types.Position{}, fmt.Errorf("open: set_leverage: %w", err)
	}

	placed, err := o.venue.PlaceMarketOrder(ctx, creds, types.MarketOrderRequest{
		Symbol:       strings.ToUpper(req.Symbol),
		Side:         req.Direction.Side(),
		PositionSide: positionSide,
		Quantity:     quantity,
	})
	if err != nil {
		return types.Position{}, fmt.Errorf("open: place_market_order: %w", err)
	}

	filled, err := o.venue.QueryOrder(ctx, creds, strings.ToUpper(req.Symbol), placed.OrderID)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: query_order: %w", err)
	}

	entryPrice, err := strconv.ParseFloat(filled.AvgPrice, 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("open: avg_price %q: %w", filled.AvgPrice, err)
	}

	pos = types.NewPosition(
		filled.OrderID, userID, strings.ToLower(req.Symbol), req.Direction,
		entryPrice, req.Leverage, quantity, req.StopLossPercent, tiers,
		creds.Key, creds.Secret,
	)

	if err := o.registry.Insert(pos); err != nil {
		return types.Position{}, fmt.Errorf("open: registry insert: %w", err)
	}

	if o.logger != nil {
		o.logger.Info("position opened", "user_id", userID, "symbol", req.Symbol,
			"direction", req.Direction.String(), "quantity", quantity, "entry_price", entryPrice)
	}

	return pos, nil
}

// Close places the closing market order sized from the venue's own risk
// row, records the commission fee, and removes the registry entry.
func (o *Orchestrator) Close(ctx context.Context, userID string, req types.CloseRequest) (fee types.FeeRecord, err error) {
	defer func() { o.recordCall("close", err) }()

	creds, ok := o.credentials.Get(userID)
	if !ok {
		return types.FeeRecord{}, fmt.Errorf("close: no credentials for user %s", userID)
	}

	rows, err := o.venue.QueryRisk(ctx, creds)
	if err != nil {
		return types.FeeRecord{}, fmt.Errorf("close: query_risk: %w", err)
	}

	var row *types.RiskRow
	for i := range rows {
		if strings.EqualFold(rows[i].Symbol, req.Symbol) && strings.EqualFold(rows[i].PositionSide, req.Direction.Exchange()) {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return types.FeeRecord{}, fmt.Errorf("close: no open risk row for %s %s", req.Symbol, req.Direction.Exchange())
	}

	quantity := strings.TrimPrefix(row.PositionAmt, "-")

	placed, err := o.venue.PlaceMarketOrder(ctx, creds, types.MarketOrderRequest{
		Symbol:       strings.ToUpper(req.Symbol),
		Side:         req.Direction.CloseSide(),
		PositionSide: req.Direction.Exchange(),
		Quantity:     quantity,
	})
	if err != nil {
		return types.FeeRecord{}, fmt.Errorf("close: place_market_order: %w", err)
	}

	trades, err := o.venue.QueryTrades(ctx, creds, strings.ToUpper(req.Symbol), placed.OrderID)
	if err != nil {
		return types.FeeRecord{}, fmt.Errorf("close: query_trades: %w", err)
	}

	rate, _ := decimal.NewFromString(closeCommissionRate)
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.RealizedPnL.Abs())
	}
	commission := total.Mul(rate)

	agentID, _ := o.profiles.GetAgentID(userID)

	fee = types.FeeRecord{
		UserID:  userID,
		AgentID: agentID,
		Amount:  commission,
	}

	o.registry.Remove(req.Symbol, userID, req.Direction)

	if o.logger != nil {
		o.logger.Info("position closed", "user_id", userID, "symbol", req.Symbol,
			"direction", req.Direction.String(), "commission", commission.String())
	}

	return fee, nil
}

// StopCloser implements the position registry's Closer interface: it
// dispatches the market close order a fired trailing stop requires,
// using the position's own venue credentials rather than the caller's
// session. It does not touch the registry itself — the registry already
// marked the position closed before invoking it.
type StopCloser struct {
	venue  exchange.ExchangeClient
	logger *slog.Logger
}

// NewStopCloser builds a StopCloser over the given exchange adapter.
func NewStopCloser(venue exchange.ExchangeClient, logger *slog.Logger) *StopCloser {
	return &StopCloser{venue: venue, logger: logger}
}

// ClosePosition places a MARKET order in the opposite direction, sized
// to the position's own quantity, using its captured credentials.
func (s *StopCloser) ClosePosition(ctx context.Context, pos types.Position) error {
	creds := types.Credentials{UserID: pos.UserID, Key: pos.APIKey, Secret: pos.APISecret}

	result, err := s.venue.PlaceMarketOrder(ctx, creds, types.MarketOrderRequest{
		Symbol:       strings.ToUpper(pos.Symbol),
		Side:         pos.Direction.CloseSide(),
		PositionSide: pos.Direction.Exchange(),
		Quantity:     pos.Quantity,
	})
	if err != nil {
		return fmt.Errorf("stop-fire close: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("stop-fire close dispatched", "symbol", pos.Symbol, "user_id", pos.UserID,
			"direction", pos.Direction.String(), "order_id", result.OrderID)
	}
	return nil
}

// Risk returns one RiskData row per venue position, preferring the
// registry's tracked stop/quantity when a matching local position
// exists and falling back to the venue's own liquidation price and
// position amount otherwise.
func (o *Orchestrator) Risk(ctx context.Context, userID string) (out []types.RiskData, err error) {
	defer func() { o.recordCall("risk", err) }()

	creds, ok := o.credentials.Get(userID)
	if !ok {
		return nil, fmt.Errorf("risk: no credentials for user %s", userID)
	}

	rows, err := o.venue.QueryRisk(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("risk: query_risk: %w", err)
	}

	out = make([]types.RiskData, 0, len(rows))
	for _, row := range rows {
		dir, err := types.ParseDirection(row.PositionSide)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("risk: unparseable position side", "symbol", row.Symbol, "position_side", row.PositionSide)
			}
			continue
		}

		data := types.RiskData{
			Symbol:     row.Symbol,
			Direction:  dir,
			Margin:     row.IsolatedWallet,
			EntryPrice: row.EntryPrice,
			UpdateTime: row.UpdateTime,
		}

		if pos, ok := o.registry.GetOne(row.Symbol, dir, userID); ok {
			data.StopPrice = strconv.FormatFloat(pos.StopLoss, 'f', -1, 64)
			data.Quantity = pos.Quantity
		} else {
			data.StopPrice = row.LiquidationPrice
			data.Quantity = row.PositionAmt
		}

		out = append(out, data)
	}
	return out, nil
}
