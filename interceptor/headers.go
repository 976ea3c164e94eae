package interceptor

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/httpware/fetch"
)

// BaseURL resolves relative request URLs against base. Absolute URLs pass
// through untouched. An empty base returns nil.
func BaseURL(base string) (fetch.Interceptor, error) {
	if base == "" {
		return nil, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", base)
	}
	// "https://api.example.com/v1" + "users" should give /v1/users
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		if c.Request.URL.IsAbs() {
			return next()
		}
		r := cloneRequest(c.Request)
		ref := *r.URL
		ref.Path = strings.TrimPrefix(ref.Path, "/")
		ref.RawPath = ""
		r.URL = u.ResolveReference(&ref)
		r.Host = r.URL.Host
		c.Request = r
		return next()
	}), nil
}

// DefaultHeaders sets each header in h that the request does not already
// carry. An empty h returns nil.
func DefaultHeaders(h http.Header) fetch.Interceptor {
	if len(h) == 0 {
		return nil
	}
	defaults := h.Clone()
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		var r *http.Request
		for k, v := range defaults {
			if _, ok := c.Request.Header[http.CanonicalHeaderKey(k)]; ok {
				continue
			}
			if r == nil {
				r = cloneRequest(c.Request)
			}
			r.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
		if r != nil {
			c.Request = r
		}
		return next()
	})
}
