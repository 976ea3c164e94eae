package interceptor

import (
	"net/http"
	"time"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/observability"
)

// Metrics records every call on the OpenTelemetry client instruments.
// A nil m returns nil.
func Metrics(m *observability.ClientMetrics, fetcherName string) fetch.Interceptor {
	if m == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		ctx, method := c.Request.Context(), c.Request.Method
		start := time.Now()
		m.RecordStart(ctx, fetcherName, method)

		resp, err := next()
		status, code := outcome(resp, err)
		m.RecordEnd(ctx, fetcherName, method, status, code, time.Since(start))
		return resp, err
	})
}

// outcome returns the status code of a finished call, or 0 and an error
// code when it produced no response.
func outcome(resp *http.Response, err error) (int, string) {
	if resp != nil {
		return resp.StatusCode, ""
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return 0, string(appErr.Code)
	}
	return 0, "TRANSPORT"
}
