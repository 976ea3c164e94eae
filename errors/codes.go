package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Core errors raised by the fetch package itself.
const (
	// ErrCodeNoTransport indicates no transport implementation could be resolved for a call.
	ErrCodeNoTransport ErrorCode = "NO_TRANSPORT"
	// ErrCodeInvalidRequest indicates the call input could not be turned into a request.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInvalidConfig indicates a Fetcher configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Interceptor errors (availability and flow control).
const (
	// ErrCodeTimeout indicates the call exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the call was refused by a local rate limiter.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeCircuitOpen indicates the circuit breaker refused the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeBulkheadFull indicates no concurrency slot was available.
	ErrCodeBulkheadFull ErrorCode = "BULKHEAD_FULL"
	// ErrCodePanic indicates an interceptor or the transport panicked.
	ErrCodePanic ErrorCode = "PANIC"
)

// Response status classifications.
const (
	// ErrCodeUnauthorized is a 401 response.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden is a 403 response.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotFound is a 404 response.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTooManyRequests is a 429 response.
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	// ErrCodeClientError is any other 4xx response.
	ErrCodeClientError ErrorCode = "CLIENT_ERROR"
	// ErrCodeServerError is a 5xx response.
	ErrCodeServerError ErrorCode = "SERVER_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:         true,
	ErrCodeRateLimited:     true,
	ErrCodeCircuitOpen:     true,
	ErrCodeBulkheadFull:    true,
	ErrCodeTooManyRequests: true,
	ErrCodeServerError:     true,
	ErrCodeNoTransport:     false,
	ErrCodeInvalidRequest:  false,
	ErrCodeInvalidConfig:   false,
	ErrCodePanic:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
