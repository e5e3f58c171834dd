package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a token bucket applied to outbound digest sends.
// Burst equals the rate so no extra burst capacity accumulates beyond the
// configured per-second maximum. A non-positive rate disables limiting.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter allowing ratePerSec sends per second.
func New(ratePerSec int) *SendLimiter {
	if ratePerSec <= 0 {
		return &SendLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &SendLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token. Called by the digest
// composer immediately before each instance's send.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
