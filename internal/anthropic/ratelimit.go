package anthropic

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const rateWindow = 60 * time.Second

// RateLimiter enforces a sliding 60-second admission window over outbound
// model calls. Admit blocks until a slot frees; Record must be called once
// per call actually issued. Safe for concurrent use.
type RateLimiter struct {
	mu        sync.Mutex
	maxPerMin int
	calls     []time.Time

	// now and sleep are injectable for tests; defaults are wall clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter admitting at most maxPerMin calls per
// sliding minute. A non-positive limit falls back to 50.
func NewRateLimiter(maxPerMin int) *RateLimiter {
	if maxPerMin <= 0 {
		maxPerMin = 50
	}
	return &RateLimiter{
		maxPerMin: maxPerMin,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Admit prunes expired timestamps and, if the window is full, waits until
// the oldest recorded call falls out of it. Returns early only when ctx is
// cancelled during the wait.
func (r *RateLimiter) Admit(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	r.prune(now)

	var wait time.Duration
	if len(r.calls) >= r.maxPerMin {
		wait = rateWindow - now.Sub(r.calls[0])
	}
	r.mu.Unlock()

	if wait > 0 {
		slog.Info("rate limit reached, waiting", "wait", wait)
		return r.sleep(ctx, wait)
	}
	return nil
}

// Record appends the current timestamp to the window.
func (r *RateLimiter) Record() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, r.now())
}

// prune drops timestamps older than the window. Caller holds the lock.
// The slice stays in append order, so the first survivor is the oldest.
func (r *RateLimiter) prune(now time.Time) {
	keep := r.calls[:0]
	for _, t := range r.calls {
		if now.Sub(t) < rateWindow {
			keep = append(keep, t)
		}
	}
	r.calls = keep
}
