package interceptor

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
)

// HeaderRequestID is the default request ID header.
const HeaderRequestID = "X-Request-Id"

// RequestID makes sure every call carries a request ID in header (default
// X-Request-Id) and in its context, where the logger picks it up. An ID
// already on the context wins over one already on the header; otherwise a
// new UUID is generated.
func RequestID(header string) fetch.Interceptor {
	if header == "" {
		header = HeaderRequestID
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		ctx := c.Request.Context()
		id, ok := logger.RequestIDFromContext(ctx)
		if !ok {
			id = c.Request.Header.Get(header)
		}
		if id == "" {
			id = uuid.New().String()
		}

		r := c.Request.Clone(logger.ContextWithRequestID(ctx, id))
		r.Header.Set(header, id)
		c.Request = r
		return next()
	})
}
