// Package ratelimit throttles repetitive diagnostics on the dispatch hot path.
//
// A mis-typed subscriber on a per-frame channel produces the same warning on every
// emission. The dispatcher consults a Limiter before logging warnings and counts the
// lines it drops, so the next allowed line can report how many were suppressed.
//
// # Basic Usage
//
//	// At most 10 warnings per second, bursts of 20
//	limiter := ratelimit.NewTokenBucket(10, 20)
//
//	if limiter.Allow() {
//	    logger.Warn("payload rejected", "suppressed", limiter.TakeDropped())
//	}
package ratelimit

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter decides whether a diagnostic may be emitted right now.
//
// All implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if an event can happen right now.
	// This is a non-blocking check. A false result is counted as dropped.
	Allow() bool

	// TakeDropped returns the number of events rejected since the last call
	// and resets the count.
	TakeDropped() uint64
}

// TokenBucket implements a local token bucket rate limiter backed by
// golang.org/x/time/rate.
//
// The token bucket algorithm:
//   - Tokens are added at the specified rate (rps)
//   - A maximum of 'burst' tokens can accumulate
//   - Each event consumes one token
//   - If no tokens are available, the event is rejected and counted
type TokenBucket struct {
	limiter atomic.Pointer[rate.Limiter]
	dropped atomic.Uint64
}

// NewTokenBucket creates a new token bucket rate limiter.
//
// Parameters:
//   - rps: Events per second (rate at which tokens are added)
//   - burst: Maximum burst size (maximum tokens that can accumulate)
//
// Use rate.Inf as rps to admit every event.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	t := &TokenBucket{}
	t.limiter.Store(rate.NewLimiter(rate.Limit(rps), burst))
	return t
}

// Allow returns true if an event can happen right now.
// Consumes one token if available.
func (t *TokenBucket) Allow() bool {
	if t.limiter.Load().Allow() {
		return true
	}
	t.dropped.Add(1)
	return false
}

// TakeDropped returns and resets the number of rejected events.
func (t *TokenBucket) TakeDropped() uint64 {
	return t.dropped.Swap(0)
}

// Reconfigure replaces the rate and burst at runtime. The bucket starts full,
// so a burst of events is admitted right after the change.
func (t *TokenBucket) Reconfigure(rps float64, burst int) {
	t.limiter.Store(rate.NewLimiter(rate.Limit(rps), burst))
}

// Limit returns the current rate limit (events per second).
func (t *TokenBucket) Limit() float64 {
	return float64(t.limiter.Load().Limit())
}

// Burst returns the current burst size.
func (t *TokenBucket) Burst() int {
	return t.limiter.Load().Burst()
}

// Unlimited never rejects.
type Unlimited struct{}

func (Unlimited) Allow() bool         { return true }
func (Unlimited) TakeDropped() uint64 { return 0 }

// Compile-time check
var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = Unlimited{}
)
