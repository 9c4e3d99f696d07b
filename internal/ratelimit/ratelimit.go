// Package ratelimit spaces out calls to the effect-extraction service.
//
// A Limiter is an ordinary value owned by whoever makes the calls; there is no
// package-level state, so independent clients never throttle each other.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter allows one call per interval and honours server back-off requests.
type Limiter struct {
	lim *rate.Limiter

	mu           sync.Mutex
	blockedUntil time.Time
	now          func() time.Time
}

// New returns a limiter allowing one call every minInterval. A non-positive
// interval disables spacing; Backoff still applies.
func New(minInterval time.Duration) *Limiter {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Limiter{
		lim: rate.NewLimiter(limit, 1),
		now: time.Now,
	}
}

// Allow reports whether a call may happen now, consuming the slot if so.
func (l *Limiter) Allow() bool {
	if l.BlockedFor() > 0 {
		return false
	}
	return l.lim.Allow()
}

// Wait blocks until a call may happen or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.BlockedFor(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return l.lim.Wait(ctx)
}

// Backoff blocks all calls for d, e.g. after a 429 with Retry-After.
// A shorter back-off never shortens a longer one already in effect.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(d)
	if until.After(l.blockedUntil) {
		l.blockedUntil = until
	}
}

// BlockedFor returns how long the current back-off still lasts.
func (l *Limiter) BlockedFor() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.blockedUntil.Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}
