package interceptor

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
)

// Timeout bounds calls whose context has no deadline yet. The deadline
// covers reading the body too and is released when the body is closed.
// Calls that run out of time fail with a TIMEOUT error. A non-positive d
// returns nil.
func Timeout(d time.Duration) fetch.Interceptor {
	if d <= 0 {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		if _, ok := c.Request.Context().Deadline(); ok {
			return next()
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		c.Request = c.Request.WithContext(ctx)

		resp, err := callGuarded(next, cancel)
		if resp == nil {
			cancel()
			if err != nil && (stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded) {
				return nil, errors.Timeout(d, err)
			}
			return nil, err
		}
		releaseOnClose(resp, cancel)
		return resp, err
	})
}
