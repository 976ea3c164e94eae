package fetch

import (
	"net/http"
	"reflect"
)

// Next resumes the chain at the following position, or calls the transport
// when invoked from the last interceptor. Not calling it short-circuits the
// call; calling it again re-runs the rest of the chain.
type Next func() (*http.Response, error)

// Interceptor is one unit of behavior in the call chain.
type Interceptor interface {
	Intercept(c *Context, next Next) (*http.Response, error)
}

// Middleware adapts a plain function to the Interceptor interface.
type Middleware func(c *Context, next Next) (*http.Response, error)

// Intercept calls m(c, next).
func (m Middleware) Intercept(c *Context, next Next) (*http.Response, error) {
	return m(c, next)
}

// Context is created fresh for every call and shared by pointer with every
// interceptor of that call.
type Context struct {
	// Request is the request the transport will receive. Interceptors may
	// replace it (usually with a clone) before calling next.
	Request *http.Request
}

// When returns i if cond holds and nil otherwise. Nil entries passed to
// WithMiddlewares are skipped, so conditional interceptors can be listed
// inline.
func When(cond bool, i Interceptor) Interceptor {
	if !cond {
		return nil
	}
	return i
}

// isNil reports whether i is a nil interface or wraps a nil func, pointer,
// map, slice, channel or interface value.
func isNil(i Interceptor) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// sameInterceptor reports whether a and b are the same comparable value.
// Func values are never equal, so they never match.
func sameInterceptor(a, b Interceptor) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	// structs with interface fields holding funcs panic on ==
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
