// Package feed implements the market feed (C6): one WebSocket connection
// per symbol, streaming book-ticker frames into the price board and
// the position registry's trailing-stop loop.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arthasyou/quantification/internal/priceboard"
	"github.com/arthasyou/quantification/internal/quant"
	"github.com/arthasyou/quantification/pkg/types"
)

const (
	defaultReadDeadline   = 30 * time.Second
	defaultReconnectSleep = 5 * time.Second
)

// Registry is the subset of the position registry the feed drives.
type Registry interface {
	Reap(symbol string)
	OnPrice(ctx context.Context, symbol string, bid, ask string)
}

// ReconnectRecorder counts reconnect cycles per symbol, for the ambient
// metrics registry. Optional: a Feed with no recorder attached simply
// skips the count.
type ReconnectRecorder interface {
	IncFeedReconnect(symbol string)
}

// Feed owns one goroutine per symbol, each maintaining its own
// reconnecting WebSocket to the venue's book-ticker stream.
type Feed struct {
	baseWSURL      string
	symbols        []string
	board          *priceboard.Board
	registry       Registry
	readDeadline   time.Duration
	reconnectSleep time.Duration
	logger         *slog.Logger
	metrics        ReconnectRecorder

	dialer *websocket.Dialer
}

// AttachMetrics wires a reconnect counter into the feed. Safe to call
// once at startup; nil is a valid no-op value.
func (f *Feed) AttachMetrics(m ReconnectRecorder) {
	f.metrics = m
}

// New builds a Feed over symbols, pushing ticks into board and registry.
func New(baseWSURL string, symbols []string, board *priceboard.Board, registry Registry, logger *slog.Logger) *Feed {
	return &Feed{
		baseWSURL:      baseWSURL,
		symbols:        symbols,
		board:          board,
		registry:       registry,
		readDeadline:   defaultReadDeadline,
		reconnectSleep: defaultReconnectSleep,
		logger:         logger,
		dialer:         websocket.DefaultDialer,
	}
}

// Run blocks until ctx is cancelled, maintaining one reconnecting
// WebSocket per symbol. Reconnection is infinite; there is no exit
// signaled by a failing symbol alone.
func (f *Feed) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sym := range f.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			f.runSymbol(ctx, sym)
		}(sym)
	}
	wg.Wait()
}

type bookTickerFrame struct {
	Ask string `json:"a"`
	Bid string `json:"b"`
}

func (f *Feed) runSymbol(ctx context.Context, sym string) {
	url := quant.FormatURL(f.baseWSURL, sym)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := f.connectAndRead(ctx, sym, url); err != nil {
			if f.logger != nil {
				f.logger.Warn("market feed disconnected", "symbol", sym, "error", err)
			}
		}
		if f.metrics != nil {
			f.metrics.IncFeedReconnect(sym)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectSleep):
		}
	}
}

func (f *Feed) connectAndRead(ctx context.Context, sym, url string) error {
	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", sym, err)
	}
	defer conn.Close()

	// gorilla's default ping handler already replies pong automatically;
	// set explicitly so the behavior doesn't depend on library defaults.
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	if f.logger != nil {
		f.logger.Info("market feed connected", "symbol", sym)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(f.readDeadline))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read %s: %w", sym, err)
		}

		f.handleFrame(ctx, sym, msg)
	}
}

func (f *Feed) handleFrame(ctx context.Context, sym string, msg []byte) {
	var frame bookTickerFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		if f.logger != nil {
			f.logger.Warn("market feed parse error", "symbol", sym, "error", err)
		}
		return
	}

	bid := quant.TrimTrailingZeros(frame.Bid)
	ask := quant.TrimTrailingZeros(frame.Ask)

	if err := f.board.Update(sym, types.Price{Bid: bid, Ask: ask}); err != nil {
		if f.logger != nil {
			f.logger.Warn("market feed board update failed", "symbol", sym, "error", err)
		}
		return
	}

	f.registry.Reap(sym)
	f.registry.OnPrice(ctx, sym, bid, ask)
}
