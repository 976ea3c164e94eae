// Package errors defines the error taxonomy of httpware.
//
// The fetch core raises only two kinds of errors of its own: an environment
// error when no transport can be resolved for a call, and an invalid request
// error when the call input cannot be turned into an *http.Request. Failures
// produced by interceptors or by the transport are passed through untouched.
//
// The remaining codes are used by the optional interceptors (timeouts, rate
// limiting, circuit breaking, status classification) so callers can branch
// on a single error type:
//
//	resp, err := f.Fetch(ctx, "https://example.com")
//	if errors.IsNoTransport(err) {
//	    // no transport configured
//	}
package errors
