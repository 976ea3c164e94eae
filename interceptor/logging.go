package interceptor

import (
	"net/http"
	"time"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
)

// Logging logs one line per call with method, URL, status and duration.
// Server errors and failed calls log at error, client errors at warn and
// everything else at debug. A nil log uses the "fetch" logger.
func Logging(log *logger.Logger) fetch.Interceptor {
	if log == nil {
		log = logger.Get("fetch")
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		req := c.Request
		start := time.Now()
		resp, err := next()

		fields := logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.URL.Redacted(),
		)
		logger.MergeWithDuration(fields, time.Since(start))
		if id, ok := logger.RequestIDFromContext(req.Context()); ok {
			fields[logger.FieldRequestID] = id
		}

		status := 0
		if resp != nil {
			status = resp.StatusCode
			fields[logger.FieldStatusCode] = status
		}
		if err != nil {
			fields[logger.FieldError] = err.Error()
		}

		switch {
		case err != nil && status == 0:
			log.Error("call failed", fields)
		case status >= 500:
			log.Error("call completed", fields)
		case status >= 400:
			log.Warn("call completed", fields)
		default:
			log.Debug("call completed", fields)
		}
		return resp, err
	})
}
