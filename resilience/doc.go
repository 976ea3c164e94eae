// Package resilience holds the fault-tolerance primitives behind the
// resilience interceptors: a circuit breaker, a rate limiter built on
// golang.org/x/time/rate, and a bulkhead.
//
// Each primitive can be used directly or installed on a Fetcher:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("billing"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50, Burst: 10})
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})
//
//	f := fetch.New(fetch.WithMiddlewares(
//	    interceptor.CircuitBreaker(cb),
//	    interceptor.RateLimit(rl),
//	    interceptor.Bulkhead(bh),
//	))
//
// Rejections are *errors.AppError values with the CIRCUIT_OPEN,
// RATE_LIMITED or BULKHEAD_FULL codes.
package resilience
