package interceptor

import (
	"net/http"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/resilience"
)

// IsFailure reports whether a finished call counts against a circuit
// breaker: any error without a response, or a 5xx response.
func IsFailure(resp *http.Response, err error) bool {
	if resp == nil {
		return err != nil
	}
	return resp.StatusCode >= 500
}

// CircuitBreaker fails calls fast with CIRCUIT_OPEN while cb is open and
// feeds every outcome back to it, classified by IsFailure. A panic further
// down the chain is recorded as a failure. A nil cb returns nil.
func CircuitBreaker(cb *resilience.CircuitBreaker) fetch.Interceptor {
	if cb == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		if err := cb.Allow(); err != nil {
			return nil, err
		}
		resp, err := callGuarded(next, func() { cb.Record(false) })
		cb.Record(!IsFailure(resp, err))
		return resp, err
	})
}

// RateLimit waits for a token from rl before each call. Refusals are
// RATE_LIMITED errors. A nil rl returns nil.
func RateLimit(rl *resilience.RateLimiter) fetch.Interceptor {
	if rl == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		if err := rl.Wait(c.Request.Context()); err != nil {
			return nil, err
		}
		return next()
	})
}

// Bulkhead holds a slot of bh for each call, until the response body is
// closed or the call fails or panics. Rejections are BULKHEAD_FULL errors. A nil bh
// returns nil.
func Bulkhead(bh *resilience.Bulkhead) fetch.Interceptor {
	if bh == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		release, err := bh.Acquire(c.Request.Context())
		if err != nil {
			return nil, err
		}
		resp, err := callGuarded(next, release)
		releaseOnClose(resp, release)
		return resp, err
	})
}
