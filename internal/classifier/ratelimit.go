package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter paces outbound model calls against the provider's
// requests-per-minute allowance. Tokens accrue lazily on acquisition,
// so no background goroutine is involved.
type rateLimiter struct {
	lastCheck time.Time
	tokens    float64
	capacity  float64
	perSecond float64
	mu        sync.Mutex
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimiter{
		lastCheck: time.Now(),
		tokens:    float64(requestsPerMinute),
		capacity:  float64(requestsPerMinute),
		perSecond: float64(requestsPerMinute) / 60,
	}
}

// wait blocks until a call slot is available or the context is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		wait := rl.acquire()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// acquire takes a token if one has accrued, returning zero. Otherwise it
// reports how long until the next token.
func (rl *rateLimiter) acquire() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.lastCheck).Seconds() * rl.perSecond
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastCheck = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.perSecond * float64(time.Second))
}
