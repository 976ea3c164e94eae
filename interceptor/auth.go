package interceptor

import (
	"net/http"
	"net/url"

	"github.com/kbukum/httpware/fetch"
)

// DefaultAPIKeyHeader is the header APIKey uses when none is named.
const DefaultAPIKeyHeader = "X-API-Key"

// Authorize runs set on a clone of every request before it goes on. It is
// the base of the credential interceptors below and takes any scheme they
// do not cover, e.g. request signing. A nil set returns nil.
func Authorize(set func(*http.Request)) fetch.Interceptor {
	if set == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		r := cloneRequest(c.Request)
		set(r)
		c.Request = r
		return next()
	})
}

// Bearer sends "Authorization: Bearer <token>". An empty token returns nil.
func Bearer(token string) fetch.Interceptor {
	if token == "" {
		return nil
	}
	value := "Bearer " + token
	return Authorize(func(r *http.Request) {
		r.Header.Set("Authorization", value)
	})
}

// Basic sends HTTP basic credentials. An empty username returns nil.
func Basic(username, password string) fetch.Interceptor {
	if username == "" {
		return nil
	}
	return Authorize(func(r *http.Request) {
		r.SetBasicAuth(username, password)
	})
}

// APIKey sends key in header name, DefaultAPIKeyHeader when name is empty.
// An empty key returns nil.
func APIKey(name, key string) fetch.Interceptor {
	if key == "" {
		return nil
	}
	if name == "" {
		name = DefaultAPIKeyHeader
	}
	return Authorize(func(r *http.Request) {
		r.Header.Set(name, key)
	})
}

// APIKeyQuery sets query parameter name to key. The rest of the query is
// sent as the caller wrote it. An empty name or key returns nil.
func APIKeyQuery(name, key string) fetch.Interceptor {
	if name == "" || key == "" {
		return nil
	}
	param := url.Values{name: {key}}
	return Authorize(func(r *http.Request) {
		fetch.SetQuery(r.URL, param)
	})
}
