package interceptor

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
)

// Recovery turns a panic in a later interceptor or the transport into a
// PANIC error and logs the stack. Install it first to cover the whole chain.
func Recovery(log *logger.Logger) fetch.Interceptor {
	if log == nil {
		log = logger.Get("fetch")
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (resp *http.Response, err error) {
		req := c.Request
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", map[string]any{
					logger.FieldError:  fmt.Sprintf("%v", r),
					"stack":            string(debug.Stack()),
					logger.FieldMethod: req.Method,
					logger.FieldURL:    req.URL.Redacted(),
				})
				resp, err = nil, errors.Panic(r)
			}
		}()
		return next()
	})
}
