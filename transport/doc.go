// Package transport builds the terminal http.RoundTripper a Fetcher hands
// requests to once every interceptor has run.
//
// New clones http.DefaultTransport and layers on dial and idle timeouts,
// connection limits, an optional proxy, client TLS (including mTLS) and an
// HTTP/2 mode:
//
//	rt, err := transport.New(transport.Config{
//	    HTTP2: transport.HTTP2Config{Mode: transport.HTTP2Tuned, ReadIdleTimeout: 30 * time.Second},
//	    TLS:   transport.TLSConfig{CAFile: "/etc/ssl/internal-ca.pem"},
//	})
//	f := fetch.New(fetch.WithTransport(rt))
package transport
