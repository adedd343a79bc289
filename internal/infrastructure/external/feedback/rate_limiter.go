package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER - Token Bucket implementation
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter is a token bucket that spaces out requests to the
// text generation endpoint.
type RateLimiter struct {
	mu sync.Mutex

	maxTokens   float64
	refillRate  float64 // tokens per second
	tokens      float64
	lastRefill  time.Time
	waitTimeout time.Duration
	now         func() time.Time
}

// RateLimiterConfig contains configuration for the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64

	// BurstSize is how many requests may go out back to back.
	BurstSize int

	// WaitTimeout is the longest a caller waits for a token.
	WaitTimeout time.Duration
}

// DefaultRateLimiterConfig allows one request per second with small bursts.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1.0,
		BurstSize:         3,
		WaitTimeout:       10 * time.Second,
	}
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	rl := &RateLimiter{
		maxTokens:   float64(config.BurstSize),
		refillRate:  config.RequestsPerSecond,
		tokens:      float64(config.BurstSize),
		waitTimeout: config.WaitTimeout,
		now:         time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

// Allow blocks until a token is available, ctx is done, or waiting would
// exceed the wait timeout.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	if rl.refillRate <= 0 {
		return nil
	}
	deadline := rl.now().Add(rl.waitTimeout)

	for {
		wait, ok := rl.tryAcquire()
		if ok {
			return nil
		}
		if rl.now().Add(wait).After(deadline) {
			return shared.ErrFeedbackRateLimited
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RecordRateLimitHit empties the bucket after the server answered 429.
func (rl *RateLimiter) RecordRateLimitHit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = 0
	rl.lastRefill = rl.now()
}

// Available returns the current token count.
func (rl *RateLimiter) Available() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillTokens()
	return rl.tokens
}

func (rl *RateLimiter) tryAcquire() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillTokens()
	if rl.tokens < 1.0 {
		needed := 1.0 - rl.tokens
		return time.Duration(needed / rl.refillRate * float64(time.Second)), false
	}
	rl.tokens--
	return 0, true
}

// refillTokens must be called with the lock held.
func (rl *RateLimiter) refillTokens() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}
