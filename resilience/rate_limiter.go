package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/kbukum/httpware/errors"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies the limiter in errors and logs.
	Name string
	// Rate is the number of calls allowed per second.
	Rate float64
	// Burst is the maximum burst size.
	Burst int
	// MaxWait bounds how long Wait blocks for a token. 0 means fail
	// immediately when no token is available.
	MaxWait time.Duration
	// OnLimit is called when a call is refused.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns the defaults used for unset fields.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token bucket over golang.org/x/time/rate.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter. A non-positive Burst defaults to
// the rate rounded up, and at least 1.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = DefaultRateLimiterConfig(config.Name).Rate
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate+0.999))
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Name returns the limiter name.
func (rl *RateLimiter) Name() string {
	return rl.config.Name
}

// Allow takes a token without blocking.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	rl.limited()
	return false
}

// Wait takes a token, blocking up to MaxWait or until ctx is done. A refusal
// is a RATE_LIMITED error whose cause is the context or limiter error, if any.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.config.MaxWait <= 0 {
		if rl.Allow() {
			return nil
		}
		return errors.RateLimited(rl.config.Name, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()
	if err := rl.limiter.Wait(ctx); err != nil {
		rl.limited()
		return errors.RateLimited(rl.config.Name, err)
	}
	return nil
}

// Execute runs fn once a token is available.
func (rl *RateLimiter) Execute(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Tokens returns the number of tokens available now.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

// Rate returns the configured calls per second.
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

// Burst returns the burst size.
func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}
