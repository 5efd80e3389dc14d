// Package exchange implements the signed REST adapter (C9) for the
// exchange: every mutating or account-scoped call is timestamped,
// HMAC-SHA256 signed, and sent with the caller's API key header. The
// core never builds a query string itself — it calls the six typed
// methods below, which own the wire protocol end to end.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arthasyou/quantification/pkg/types"
)

// ExchangeClient is the set of venue operations the trade orchestrator
// (C8) depends on. A fake implementing this interface drives C8's tests
// without a network call.
type ExchangeClient interface {
	SetLeverage(ctx context.Context, creds types.Credentials, symbol string, leverage int) error
	PlaceMarketOrder(ctx context.Context, creds types.Credentials, req types.MarketOrderRequest) (types.OrderResult, error)
	QueryOrder(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) (types.OrderResult, error)
	QueryTrades(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) ([]types.TradeRecord, error)
	QueryRisk(ctx context.Context, creds types.Credentials) ([]types.RiskRow, error)
	ExchangeInfo(ctx context.Context) (map[string]int, error)
}

// Client is the concrete ExchangeClient, built on resty with per-category
// rate limiting and retry on 5xx, mirroring the teacher's client shape.
type Client struct {
	http   *resty.Client
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewClient builds a Client against baseURL (the venue's REST root, e.g.
// https://fapi.binance.com). When dryRun is true, mutating calls
// (SetLeverage, PlaceMarketOrder) are logged and short-circuited instead
// of sent.
func NewClient(baseURL string, timeout time.Duration, retryCount int, dryRun bool, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Client{
		http:   httpClient,
		rl:     NewRateLimiter(),
		dryRun: dryRun,
		logger: logger,
	}
}

func (c *Client) signedRequest(ctx context.Context, creds types.Credentials) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", creds.Key)
}

// SetLeverage sets the per-symbol leverage for the account.
func (c *Client) SetLeverage(ctx context.Context, creds types.Credentials, symbol string, leverage int) error {
	if err := c.rl.Leverage.Wait(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf("symbol=%s&leverage=%d", symbol, leverage)
	signed := signedQuery(creds.Secret, query)

	if c.dryRun {
		if c.logger != nil {
			c.logger.Info("dry-run: set_leverage skipped", "symbol", symbol, "leverage", leverage)
		}
		return nil
	}

	resp, err := c.signedRequest(ctx, creds).
		SetQueryString(signed).
		Post("/fapi/v1/leverage")
	if err != nil {
		return fmt.Errorf("set_leverage: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("set_leverage: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

type orderResponse struct {
	OrderID  uint64 `json:"orderId"`
	AvgPrice string `json:"avgPrice"`
	Status   string `json:"status"`
}

// PlaceMarketOrder submits a MARKET order with newOrderRespType=RESULT.
// A client order id is generated per call (idempotency on the venue side
// if the same request is retried).
func (c *Client) PlaceMarketOrder(ctx context.Context, creds types.Credentials, req types.MarketOrderRequest) (types.OrderResult, error) {
	if err := c.rl.Order.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	query := fmt.Sprintf(
		"symbol=%s&side=%s&positionSide=%s&type=MARKET&quantity=%s&newClientOrderId=%s&newOrderRespType=RESULT",
		req.Symbol, req.Side, req.PositionSide, req.Quantity, clientOrderID,
	)
	signed := signedQuery(creds.Secret, query)

	if c.dryRun {
		if c.logger != nil {
			c.logger.Info("dry-run: place_market_order skipped", "symbol", req.Symbol, "side", req.Side, "quantity", req.Quantity)
		}
		return types.OrderResult{OrderID: 0, AvgPrice: "0", Status: "DRY_RUN"}, nil
	}

	var result orderResponse
	resp, err := c.signedRequest(ctx, creds).
		SetQueryString(signed).
		SetResult(&result).
		Post("/fapi/v1/order")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("place_market_order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.OrderResult{}, fmt.Errorf("place_market_order: status %d: %s", resp.StatusCode(), resp.String())
	}

	return types.OrderResult{OrderID: result.OrderID, AvgPrice: result.AvgPrice, Status: result.Status}, nil
}

// QueryOrder re-queries an order by id for its authoritative fill price.
func (c *Client) QueryOrder(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) (types.OrderResult, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return types.OrderResult{}, err
	}

	query := fmt.Sprintf("symbol=%s&orderId=%d", symbol, orderID)
	signed := signedQuery(creds.Secret, query)

	var result orderResponse
	resp, err := c.signedRequest(ctx, creds).
		SetQueryString(signed).
		SetResult(&result).
		Get("/fapi/v1/order")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("query_order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.OrderResult{}, fmt.Errorf("query_order: status %d: %s", resp.StatusCode(), resp.String())
	}

	return types.OrderResult{OrderID: result.OrderID, AvgPrice: result.AvgPrice, Status: result.Status}, nil
}

type tradeResponse struct {
	OrderID     uint64 `json:"orderId"`
	RealizedPnl string `json:"realizedPnl"`
	Commission  string `json:"commission"`
	Time        int64  `json:"time"`
}

// QueryTrades fetches the fills for orderID, used for fee reconciliation
// on close.
func (c *Client) QueryTrades(ctx context.Context, creds types.Credentials, symbol string, orderID uint64) ([]types.TradeRecord, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("symbol=%s&orderId=%d", symbol, orderID)
	signed := signedQuery(creds.Secret, query)

	var raw []tradeResponse
	resp, err := c.signedRequest(ctx, creds).
		SetQueryString(signed).
		SetResult(&raw).
		Get("/fapi/v1/userTrades")
	if err != nil {
		return nil, fmt.Errorf("query_trades: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("query_trades: status %d: %s", resp.StatusCode(), resp.String())
	}

	trades := make([]types.TradeRecord, 0, len(raw))
	for _, t := range raw {
		pnl, err := decimal.NewFromString(t.RealizedPnl)
		if err != nil {
			return nil, fmt.Errorf("query_trades: realizedPnl %q: %w", t.RealizedPnl, err)
		}
		commission, err := decimal.NewFromString(t.Commission)
		if err != nil {
			return nil, fmt.Errorf("query_trades: commission %q: %w", t.Commission, err)
		}
		trades = append(trades, types.TradeRecord{
			OrderID:     t.OrderID,
			RealizedPnL: pnl,
			Commission:  commission,
			Time:        time.UnixMilli(t.Time),
		})
	}
	return trades, nil
}

type riskRowResponse struct {
	Symbol           string `json:"symbol"`
	PositionSide     string `json:"positionSide"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	IsolatedWallet   string `json:"isolatedWallet"`
	LiquidationPrice string `json:"liquidationPrice"`
	UpdateTime       int64  `json:"updateTime"`
}

// QueryRisk returns every open position row on the account.
func (c *Client) QueryRisk(ctx context.Context, creds types.Credentials) ([]types.RiskRow, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	signed := signedQuery(creds.Secret, "")

	var raw []riskRowResponse
	resp, err := c.signedRequest(ctx, creds).
		SetQueryString(signed).
		SetResult(&raw).
		Get("/fapi/v3/positionRisk")
	if err != nil {
		return nil, fmt.Errorf("query_risk: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("query_risk: status %d: %s", resp.StatusCode(), resp.String())
	}

	rows := make([]types.RiskRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, types.RiskRow{
			Symbol:           r.Symbol,
			PositionSide:     r.PositionSide,
			PositionAmt:      r.PositionAmt,
			EntryPrice:       r.EntryPrice,
			IsolatedWallet:   r.IsolatedWallet,
			LiquidationPrice: r.LiquidationPrice,
			UpdateTime:       time.UnixMilli(r.UpdateTime),
		})
	}
	return rows, nil
}

type symbolInfo struct {
	Symbol       string `json:"symbol"`
	QuantityPrec int    `json:"quantityPrecision"`
}

type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

// ExchangeInfo fetches the quantity precision for every tradeable symbol
// in one unsigned, unauthenticated call.
func (c *Client) ExchangeInfo(ctx context.Context) (map[string]int, error) {
	if err := c.rl.Query.Wait(ctx); err != nil {
		return nil, err
	}

	var result exchangeInfoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/fapi/v1/exchangeInfo")
	if err != nil {
		return nil, fmt.Errorf("exchange_info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("exchange_info: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make(map[string]int, len(result.Symbols))
	for _, s := range result.Symbols {
		out[s.Symbol] = s.QuantityPrec
	}
	return out, nil
}
