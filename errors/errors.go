package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the error type shared by the fetch core and the interceptors.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the call can be attempted again.
	Retryable bool `json:"retryable"`
	// StatusCode is the response status that produced this error (0 if none).
	StatusCode int `json:"status_code,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// NoTransport is returned when a call finds no transport implementation.
func NoTransport() *AppError {
	return New(ErrCodeNoTransport, "no transport implementation found in this environment")
}

// InvalidRequest creates an error for call input that cannot become a request.
func InvalidRequest(reason string) *AppError {
	return New(ErrCodeInvalidRequest, reason)
}

// InvalidConfig creates an error for configuration that failed validation.
func InvalidConfig(reason string) *AppError {
	return New(ErrCodeInvalidConfig, reason)
}

// Timeout creates an error for a call that exceeded the given deadline.
func Timeout(after time.Duration, cause error) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("call did not complete within %s", after)).
		WithDetail("timeout", after.String()).
		WithCause(cause)
}

// RateLimited creates an error for a call refused by a local limiter.
func RateLimited(limiter string, cause error) *AppError {
	return New(ErrCodeRateLimited, "rate limit exceeded").
		WithDetail("limiter", limiter).
		WithCause(cause)
}

// CircuitOpen creates an error for a call refused by an open circuit.
func CircuitOpen(breaker string) *AppError {
	return New(ErrCodeCircuitOpen, "circuit breaker is open").
		WithDetail("breaker", breaker)
}

// BulkheadFull creates an error for a call that found no free slot.
func BulkheadFull(bulkhead string, cause error) *AppError {
	return New(ErrCodeBulkheadFull, "no concurrency slot available").
		WithDetail("bulkhead", bulkhead).
		WithCause(cause)
}

// Panic wraps a recovered panic value.
func Panic(value any) *AppError {
	e := New(ErrCodePanic, fmt.Sprintf("panic: %v", value))
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// FromStatus classifies a response status code. It returns nil for 1xx, 2xx
// and 3xx statuses.
func FromStatus(statusCode int) *AppError {
	var code ErrorCode
	switch {
	case statusCode < http.StatusBadRequest:
		return nil
	case statusCode == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case statusCode == http.StatusForbidden:
		code = ErrCodeForbidden
	case statusCode == http.StatusNotFound:
		code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		code = ErrCodeTooManyRequests
	case statusCode < http.StatusInternalServerError:
		code = ErrCodeClientError
	default:
		code = ErrCodeServerError
	}
	e := New(code, fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode)))
	e.StatusCode = statusCode
	return e
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := AsAppError(err)
	return ok && e.Code == code
}

// IsNoTransport checks if an error is an environment error.
func IsNoTransport(err error) bool { return HasCode(err, ErrCodeNoTransport) }

// IsInvalidRequest checks if an error is an invalid request error.
func IsInvalidRequest(err error) bool { return HasCode(err, ErrCodeInvalidRequest) }

// IsInvalidConfig checks if an error is an invalid config error.
func IsInvalidConfig(err error) bool { return HasCode(err, ErrCodeInvalidConfig) }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsCircuitOpen checks if an error is a circuit-open error.
func IsCircuitOpen(err error) bool { return HasCode(err, ErrCodeCircuitOpen) }

// IsRateLimited checks if an error is a local rate limit rejection.
func IsRateLimited(err error) bool { return HasCode(err, ErrCodeRateLimited) }

// IsBulkheadFull checks if an error is a bulkhead rejection.
func IsBulkheadFull(err error) bool { return HasCode(err, ErrCodeBulkheadFull) }

// IsPanic checks if an error is a recovered panic.
func IsPanic(err error) bool { return HasCode(err, ErrCodePanic) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	e, ok := AsAppError(err)
	return ok && e.Retryable
}
