package orchestrator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthasyou/quantification/internal/precision"
	"github.com/arthasyou/quantification/internal/priceboard"
	"github.com/arthasyou/quantification/internal/session"
	"github.com/arthasyou/quantification/internal/strategy"
	"github.com/arthasyou/quantification/pkg/types"
)

type fakeVenue struct {
	leverageSet    map[string]int
	placed         []types.MarketOrderRequest
	queryOrderResp types.OrderResult
	trades         []types.TradeRecord
	riskRows       []types.RiskRow
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{leverageSet: make(map[string]int)}
}

func (f *fakeVenue) SetLeverage(ctx context.Context, creds types.Credentials, symbol string, leverage int) error {
	f.leverageSet[symbol] = leverage
	return nil
}

func (f *fakeVenue) PlaceMarketOrder(ctx context.Context, creds types.Credentials, req types.MarketOrderRequest) (types.OrderResult, error) {
	f.placed = append(f.placed, req)
	return types.OrderResult{OrderID: 42, AvgPrice: "3.276", Status: "FILLED"}, nil
}

func (f *fakeVenue) QueryOrder(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) (types.OrderResult, error) {
	return f.queryOrderResp, nil
}

func (f *fakeVenue) QueryTrades(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) ([]types.TradeRecord, error) {
	return f.trades, nil
}

func (f *fakeVenue) QueryRisk(ctx context.Context, creds types.Credentials) ([]types.RiskRow, error) {
	return f.riskRows, nil
}

func (f *fakeVenue) ExchangeInfo(ctx context.Context) (map[string]int, error) {
	return nil, nil
}

type fakeRegistry struct {
	inserted []types.Position
	removed  []string
	getOne   map[string]types.Position
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{getOne: make(map[string]types.Position)}
}

func (f *fakeRegistry) Insert(pos types.Position) error {
	f.inserted = append(f.inserted, pos)
	return nil
}

func (f *fakeRegistry) Remove(sym, userID string, dir types.Direction) {
	f.removed = append(f.removed, sym+"/"+userID+"/"+dir.String())
}

func (f *fakeRegistry) GetOne(sym string, dir types.Direction, userID string) (types.Position, bool) {
	pos, ok := f.getOne[sym+"/"+userID+"/"+dir.String()]
	return pos, ok
}

func setup(t *testing.T) (*Orchestrator, *fakeVenue, *fakeRegistry) {
	t.Helper()

	board := priceboard.New([]string{"filusdt"})
	_ = board.Update("filusdt", types.Price{Bid: "3.275", Ask: "3.276"})

	prec := precision.New()
	prec.Load(map[string]int{"FILUSDT": 1})

	strategies := strategy.New()
	strategies.Insert("u1", types.DefaultStrategyConfig())
	creds := session.NewCredentialStore()
	creds.Insert(types.Credentials{UserID: "u1", Key: "key", Secret: "secret"})
	profiles := session.NewProfileStore()
	profiles.Insert(types.Profile{UserID: "u1", AgentID: "agent-1", Balance: decimal.Zero})

	venue := newFakeVenue()
	venue.queryOrderResp = types.OrderResult{OrderID: 42, AvgPrice: "3.276", Status: "FILLED"}

	reg := newFakeRegistry()

	orch := New(board, prec, strategies, reg, creds, profiles, venue, nil)
	return orch, venue, reg
}

func TestOpenScenarioS1(t *testing.T) {
	t.Parallel()

	orch, venue, reg := setup(t)

	pos, err := orch.Open(context.Background(), "u1", types.OpenRequest{
		Symbol:          "filusdt",
		Direction:       types.Long,
		Leverage:        10,
		Margin:          100,
		StopLossPercent: 0.5,
		StrategyID:      1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if pos.Quantity != "305.2" {
		t.Errorf("quantity = %q, want 305.2", pos.Quantity)
	}
	if math.Abs(pos.StopLoss-3.1122) > 1e-6 {
		t.Errorf("stop_loss = %v, want ~3.1122", pos.StopLoss)
	}
	if len(reg.inserted) != 1 {
		t.Fatalf("registry got %d inserts, want 1", len(reg.inserted))
	}
	if venue.leverageSet["FILUSDT"] != 10 {
		t.Errorf("leverage set = %v, want 10", venue.leverageSet)
	}
	if len(venue.placed) != 1 || venue.placed[0].Side != "BUY" || venue.placed[0].PositionSide != "LONG" {
		t.Errorf("placed order = %+v, want BUY/LONG", venue.placed)
	}
}

func TestOpenUnknownSymbol(t *testing.T) {
	t.Parallel()

	orch, _, _ := setup(t)

	_, err := orch.Open(context.Background(), "u1", types.OpenRequest{
		Symbol: "ghostusdt", Direction: types.Long, Leverage: 10, Margin: 100, StrategyID: 1,
	})
	if err == nil {
		t.Fatal("expected INVALID_SYMBOL error")
	}
}

func TestCloseScenarioS1(t *testing.T) {
	t.Parallel()

	orch, venue, reg := setup(t)

	venue.riskRows = []types.RiskRow{
		{Symbol: "FILUSDT", PositionSide: "LONG", PositionAmt: "305.2", EntryPrice: "3.276", LiquidationPrice: "2.9", UpdateTime: time.Now()},
	}
	venue.trades = []types.TradeRecord{
		{OrderID: 42, RealizedPnL: decimal.NewFromFloat(-2.0), Commission: decimal.Zero},
		{OrderID: 42, RealizedPnL: decimal.NewFromFloat(1.0), Commission: decimal.Zero},
	}

	fee, err := orch.Close(context.Background(), "u1", types.CloseRequest{Symbol: "filusdt", Direction: types.Long})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := decimal.NewFromFloat(3.0).Mul(decimal.NewFromFloat(0.005))
	if !fee.Amount.Equal(want) {
		t.Errorf("fee.Amount = %s, want %s", fee.Amount, want)
	}
	if fee.AgentID != "agent-1" {
		t.Errorf("fee.AgentID = %q, want agent-1", fee.AgentID)
	}
	if len(venue.placed) != 1 || venue.placed[0].Side != "SELL" || venue.placed[0].Quantity != "305.2" {
		t.Errorf("close order = %+v, want SELL qty 305.2", venue.placed)
	}
	if len(reg.removed) != 1 {
		t.Errorf("registry removed = %v, want 1 entry", reg.removed)
	}
}

func TestCloseNoMatchingRiskRow(t *testing.T) {
	t.Parallel()

	orch, _, _ := setup(t)
	_, err := orch.Close(context.Background(), "u1", types.CloseRequest{Symbol: "filusdt", Direction: types.Long})
	if err == nil {
		t.Fatal("expected error when no risk row matches")
	}
}

func TestRiskFallsBackToVenueRowWhenNoLocalPosition(t *testing.T) {
	t.Parallel()

	orch, venue, _ := setup(t)
	venue.riskRows = []types.RiskRow{
		{Symbol: "FILUSDT", PositionSide: "LONG", PositionAmt: "305.2", EntryPrice: "3.276", LiquidationPrice: "2.9", UpdateTime: time.Now()},
	}

	data, err := orch.Risk(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Risk: %v", err)
	}
	if len(data) != 1 {
		t.Fatalf("got %d rows, want 1", len(data))
	}
	if data[0].StopPrice != "2.9" || data[0].Quantity != "305.2" {
		t.Errorf("risk row = %+v, want venue fallback values", data[0])
	}
}

func TestStopCloserUsesPositionOwnCredentials(t *testing.T) {
	t.Parallel()

	venue := newFakeVenue()
	closer := NewStopCloser(venue, nil)

	pos := types.Position{
		Symbol:    "btcusdt",
		UserID:    "u1",
		Direction: types.Long,
		Quantity:  "0.01",
		APIKey:    "pos-key",
		APISecret: "pos-secret",
	}

	if err := closer.ClosePosition(context.Background(), pos); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	if len(venue.placed) != 1 {
		t.Fatalf("placed %d orders, want 1", len(venue.placed))
	}
	order := venue.placed[0]
	if order.Side != "SELL" || order.PositionSide != "LONG" || order.Quantity != "0.01" {
		t.Errorf("order = %+v, want SELL/LONG/0.01", order)
	}
}

func TestRiskPrefersRegistryWhenPresent(t *testing.T) {
	t.Parallel()

	orch, venue, reg := setup(t)
	venue.riskRows = []types.RiskRow{
		{Symbol: "FILUSDT", PositionSide: "LONG", PositionAmt: "305.2", EntryPrice: "3.276", LiquidationPrice: "2.9", UpdateTime: time.Now()},
	}
	reg.getOne["FILUSDT/u1/Long"] = types.Position{StopLoss: 3.1122, Quantity: "305.2"}

	data, err := orch.Risk(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Risk: %v", err)
	}
	if data[0].StopPrice != "3.1122" {
		t.Errorf("StopPrice = %q, want registry-tracked 3.1122", data[0].StopPrice)
	}
}
