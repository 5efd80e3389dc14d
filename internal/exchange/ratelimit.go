// ratelimit.go implements token-bucket rate limiting for the exchange
// REST adapter.
//
// Binance Futures enforces weighted per-minute limits. This file provides
// a smooth token-bucket implementation that refills continuously (rather
// than in one-minute bursts) to avoid hitting hard limits.
//
// Three buckets are maintained:
//   - Order:  1200 burst / 20 per sec (maps to the 1200-weight/min order endpoint group)
//   - Query:  2400 burst / 40 per sec (maps to the 2400-weight/min read endpoint group)
//   - Leverage: 300 burst / 5 per sec (maps to the lighter-weight leverage/account group)
package exchange

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token-bucket rate limiter with continuous refill.
// Callers block in Wait() until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		// Calculate wait time for next token
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// retry
		}
	}
}

// RateLimiter groups token buckets by exchange endpoint category. Each
// exchange call must wait on the appropriate bucket before making the
// HTTP request.
type RateLimiter struct {
	Order    *TokenBucket // POST /fapi/v1/order — placing orders
	Query    *TokenBucket // GET endpoints — order/trade/risk/exchangeInfo queries
	Leverage *TokenBucket // POST /fapi/v1/leverage
}

// NewRateLimiter creates rate limiters tuned to the exchange's published
// weight limits. Capacities are set to a burst allowance, rates to a
// smooth per-second refill.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Order:    NewTokenBucket(1200, 20),
		Query:    NewTokenBucket(2400, 40),
		Leverage: NewTokenBucket(300, 5),
	}
}
