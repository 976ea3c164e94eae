package fetch

import (
	"context"
	"net/http"
	"reflect"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/logger"
)

// TransportResolver returns the transport for one call. Returning nil means
// no transport is available and fails the call.
type TransportResolver func() http.RoundTripper

// DefaultTransport resolves http.DefaultTransport at call time.
func DefaultTransport() http.RoundTripper {
	return http.DefaultTransport
}

// Fetcher is a transport call with an interceptor chain in front of it.
// It implements http.RoundTripper and is safe for concurrent use.
type Fetcher struct {
	name     string
	registry *Registry
	resolve  TransportResolver
	log      *logger.Logger
}

// compile-time assertion
var _ http.RoundTripper = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	name        string
	mode        RegistrationMode
	middlewares []Interceptor
	resolve     TransportResolver
	log         *logger.Logger
}

// WithName names the Fetcher in its log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMiddlewares installs fixed interceptors. They run before any added
// with Use, in the given order, and cannot be ejected. Nil entries are
// skipped; see When.
func WithMiddlewares(interceptors ...Interceptor) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, interceptors...) }
}

// WithTransport uses rt as the transport for every call. A nil rt makes
// every call fail with a no-transport error.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.resolve = func() http.RoundTripper { return rt }
	}
}

// WithTransportResolver sets how the transport is found for each call.
func WithTransportResolver(resolve TransportResolver) Option {
	return func(o *options) { o.resolve = resolve }
}

// WithLogger sets the logger used for registry changes and environment errors.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegistrationMode sets the duplicate registration policy.
func WithRegistrationMode(mode RegistrationMode) Option {
	return func(o *options) { o.mode = mode }
}

// New creates a Fetcher with its own registry.
func New(opts ...Option) *Fetcher {
	o := options{
		name:    "fetch",
		resolve: DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolve == nil {
		o.resolve = func() http.RoundTripper { return nil }
	}
	if o.log == nil {
		o.log = logger.Get("fetch")
	}

	f := &Fetcher{
		name:     o.name,
		registry: NewRegistry(o.mode),
		resolve:  o.resolve,
		log:      o.log.WithFields(logger.Fields(logger.FieldFetcher, o.name)),
	}
	if n := f.registry.RegisterInitial(o.middlewares...); n > 0 {
		f.log.Debug("fixed interceptors installed", logger.Fields("count", n))
	}
	return f
}

// Fetch performs one call. input is a URL string, a *url.URL or an
// *http.Request; opts adjust the request before the chain sees it.
func (f *Fetcher) Fetch(ctx context.Context, input any, opts ...RequestOption) (*http.Response, error) {
	transport, err := f.transport()
	if err != nil {
		return nil, err
	}

	req, err := NewRequest(ctx, input, opts...)
	if err != nil {
		return nil, err
	}

	return dispatch(&Context{Request: req}, f.registry.Snapshot(), transport)
}

// Do performs one call with req as is.
func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return f.Fetch(context.Background(), req)
	}
	transport, err := f.transport()
	if err != nil {
		return nil, err
	}
	return dispatch(&Context{Request: req}, f.registry.Snapshot(), transport)
}

// RoundTrip implements http.RoundTripper so a Fetcher can stand in for the
// transport it wraps. Interceptors that change the request should replace
// Context.Request with a clone rather than modify the caller's request.
//
// The RoundTripper contract allows a response or an error, not both. When
// the chain returns both (StatusErrors does for non-2xx answers), RoundTrip
// returns the response and drops the error: an http.Client caller then sees
// the status code and owns the body, as with a bare transport.
func (f *Fetcher) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := f.Do(req)
	if resp != nil && err != nil {
		f.log.Debug("response kept, chain error dropped", logger.Fields(
			logger.FieldURL, req.URL.Redacted(),
			logger.FieldStatusCode, resp.StatusCode,
			logger.FieldError, err.Error(),
		))
		return resp, nil
	}
	return resp, err
}

// Client returns an *http.Client whose transport is f.
func (f *Fetcher) Client() *http.Client {
	return &http.Client{Transport: f}
}

// Use adds i after every installed interceptor and returns its handle.
func (f *Fetcher) Use(i Interceptor) Handle {
	h := f.registry.Register(i)
	if h > 0 {
		f.log.Debug("interceptor registered", logger.Fields(logger.FieldHandle, int64(h)))
	}
	return h
}

// UseFunc is Use for a plain function.
func (f *Fetcher) UseFunc(fn func(c *Context, next Next) (*http.Response, error)) Handle {
	if fn == nil {
		return 0
	}
	return f.Use(Middleware(fn))
}

// Eject removes the interceptor added with handle h. Unknown handles and
// handles already ejected are ignored; fixed interceptors cannot be removed.
func (f *Fetcher) Eject(h Handle) {
	if f.registry.Eject(h) {
		f.log.Debug("interceptor ejected", logger.Fields(logger.FieldHandle, int64(h)))
	}
}

// Len returns the number of installed interceptors.
func (f *Fetcher) Len() int {
	return f.registry.Len()
}

// Name returns the Fetcher name.
func (f *Fetcher) Name() string {
	return f.name
}

func (f *Fetcher) transport() (http.RoundTripper, error) {
	rt := f.resolve()
	if isNilTransport(rt) {
		err := errors.NoTransport()
		f.log.Error("call rejected", logger.ErrorFields("resolve transport", err))
		return nil, err
	}
	return rt, nil
}

func isNilTransport(rt http.RoundTripper) bool {
	if rt == nil {
		return true
	}
	v := reflect.ValueOf(rt)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}
