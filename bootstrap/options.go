package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
)

// Option configures NewFetcher.
type Option func(*fetcherOptions)

type fetcherOptions struct {
	logger         *logger.Logger
	transport      http.RoundTripper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	registerer     prometheus.Registerer
	jwtKey         any
	extra          []fetch.Interceptor
}

func resolveOptions(opts []Option) *fetcherOptions {
	o := &fetcherOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. If not set, one is built from the config's
// Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *fetcherOptions) { o.logger = l }
}

// WithTransport replaces the transport built from the config.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *fetcherOptions) { o.transport = rt }
}

// WithTracerProvider uses tp for the tracing interceptor instead of an
// OTLP provider built from the config.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *fetcherOptions) { o.tracerProvider = tp }
}

// WithMeterProvider uses mp for the metrics interceptor instead of an OTLP
// provider built from the config.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *fetcherOptions) { o.meterProvider = mp }
}

// WithRegisterer registers Prometheus collectors on reg instead of the
// default registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *fetcherOptions) { o.registerer = reg }
}

// WithJWTPrivateKey signs JWT auth tokens with an RSA or ECDSA key. The
// config must name a matching RS* or ES* method.
func WithJWTPrivateKey(key any) Option {
	return func(o *fetcherOptions) { o.jwtKey = key }
}

// WithInterceptors appends fixed interceptors after the configured ones.
func WithInterceptors(interceptors ...fetch.Interceptor) Option {
	return func(o *fetcherOptions) { o.extra = append(o.extra, interceptors...) }
}
