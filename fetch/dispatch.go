package fetch

import (
	"net/http"

	"github.com/kbukum/httpware/errors"
)

// dispatch runs one call through chain and then transport.
//
// The continuations are built up front, one per chain position plus the
// terminal one, and belong to this call only. conts[i] runs chain[i]; the
// last one hands c.Request, as it is at that moment, to the transport.
func dispatch(c *Context, chain []Interceptor, transport http.RoundTripper) (*http.Response, error) {
	conts := make([]Next, len(chain)+1)
	conts[len(chain)] = func() (*http.Response, error) {
		if c.Request == nil {
			return nil, errors.InvalidRequest("request was cleared before reaching the transport")
		}
		return transport.RoundTrip(c.Request)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		interceptor, next := chain[i], conts[i+1]
		conts[i] = func() (*http.Response, error) {
			return interceptor.Intercept(c, next)
		}
	}
	return conts[0]()
}
