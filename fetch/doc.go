// Package fetch wraps an HTTP transport call with an ordered chain of
// interceptors executed in the onion model.
//
// A Fetcher behaves exactly like its transport when no interceptors are
// installed. Each installed interceptor receives the per-call *Context and a
// Next continuation; code before next() runs on the way in (registration
// order), code after it runs on the way out (reverse order):
//
//	f := fetch.New(fetch.WithMiddlewares(
//	    interceptor.RequestID(),
//	    fetch.When(debug, interceptor.Logging(log)),
//	))
//
//	h := f.UseFunc(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
//	    c.Request.Header.Set("X-Tenant", "acme")
//	    return next()
//	})
//	defer f.Eject(h)
//
//	resp, err := f.Fetch(ctx, "https://example.com/items", fetch.WithMethod(http.MethodPost))
//
// Interceptors passed to New are fixed: they always run first and cannot be
// ejected. Interceptors added with Use get a Handle that Eject accepts.
//
// The transport is resolved per call. By default it is http.DefaultTransport;
// when the resolver yields nil the call fails with an errors.ErrCodeNoTransport
// error before any interceptor runs.
package fetch
