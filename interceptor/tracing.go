package interceptor

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
	"github.com/kbukum/httpware/observability"
)

type tracingOptions struct {
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
	fetcher    string
}

// TracingOption configures the Tracing interceptor.
type TracingOption func(*tracingOptions)

// WithTracerProvider uses tp instead of the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(o *tracingOptions) { o.provider = tp }
}

// WithPropagator uses p instead of the global propagator.
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(o *tracingOptions) { o.propagator = p }
}

// WithFetcherName tags spans with the fetcher name.
func WithFetcherName(name string) TracingOption {
	return func(o *tracingOptions) { o.fetcher = name }
}

// Tracing starts a client span for each call and injects its context into
// the outgoing headers. The span ends when the rest of the chain returns.
func Tracing(opts ...TracingOption) fetch.Interceptor {
	o := tracingOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		provider := o.provider
		if provider == nil {
			provider = otel.GetTracerProvider()
		}
		propagator := o.propagator
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}

		req := c.Request
		attrs := []attribute.KeyValue{
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLFull(req.URL.Redacted()),
			semconv.ServerAddress(req.URL.Hostname()),
		}
		if o.fetcher != "" {
			attrs = append(attrs, attribute.String(observability.AttrFetcher, o.fetcher))
		}
		if id, ok := logger.RequestIDFromContext(req.Context()); ok {
			attrs = append(attrs, attribute.String(observability.AttrRequestID, id))
		}

		ctx, span := provider.Tracer(observability.TracerName).Start(req.Context(), "HTTP "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		r := req.Clone(ctx)
		propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))
		c.Request = r

		resp, err := next()
		if resp != nil {
			span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
			if resp.StatusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if appErr, ok := errors.AsAppError(err); ok {
				span.SetAttributes(attribute.String(observability.AttrErrorCode, string(appErr.Code)))
			}
		}
		return resp, err
	})
}
