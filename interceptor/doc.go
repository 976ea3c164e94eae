// Package interceptor provides ready-made fetch interceptors.
//
// Constructors return a fetch.Interceptor. Those that take a dependency
// return nil when it is nil or disabled, and nil entries are skipped by
// fetch.WithMiddlewares, so a chain can be listed in one place:
//
//	f := fetch.New(fetch.WithMiddlewares(
//	    interceptor.Recovery(log),
//	    interceptor.RequestID(""),
//	    interceptor.Logging(log),
//	    interceptor.Timeout(cfg.Timeout),
//	    interceptor.Bearer(token),
//	))
//
// Interceptors that change the request clone it first, so the caller's
// *http.Request is never modified.
package interceptor
