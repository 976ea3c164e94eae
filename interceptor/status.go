package interceptor

import (
	"net/http"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
)

// StatusErrors turns 4xx and 5xx responses into an *errors.AppError
// classified by errors.FromStatus. The response is still returned next to
// the error so its body can be read; the caller must close it.
func StatusErrors() fetch.Interceptor {
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		req := c.Request
		resp, err := next()
		if err != nil || resp == nil {
			return resp, err
		}
		if appErr := errors.FromStatus(resp.StatusCode); appErr != nil {
			return resp, appErr.
				WithDetail("method", req.Method).
				WithDetail("url", req.URL.Redacted())
		}
		return resp, nil
	})
}
