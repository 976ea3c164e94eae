package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/kbukum/httpware/config"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/interceptor"
	"github.com/kbukum/httpware/logger"
	"github.com/kbukum/httpware/observability"
	"github.com/kbukum/httpware/resilience"
	"github.com/kbukum/httpware/transport"
)

// Fetcher is a fetch.Fetcher assembled from configuration, together with
// the resources it owns.
type Fetcher struct {
	*fetch.Fetcher

	Config  *config.Config
	Logger  *logger.Logger
	Summary *Summary

	// Set when the matching interceptor is enabled.
	CircuitBreaker *resilience.CircuitBreaker
	RateLimiter    *resilience.RateLimiter
	Bulkhead       *resilience.Bulkhead

	transport http.RoundTripper

	mu      sync.Mutex
	onStop  []Hook
	stopped bool
}

// NewFetcher applies defaults to cfg, validates it and builds the Fetcher it
// describes. ctx bounds the setup of telemetry exporters.
func NewFetcher(ctx context.Context, cfg *config.Config, opts ...Option) (*Fetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	f := &Fetcher{
		Config:  cfg,
		Summary: NewSummary(cfg.Name, cfg.Version),
	}
	if o.logger != nil {
		f.Logger = o.logger
	} else {
		f.Logger = logger.New(cfg.Logging, cfg.Name)
	}

	f.transport = o.transport
	if f.transport == nil {
		rt, err := transport.New(cfg.Transport)
		if err != nil {
			return nil, err
		}
		f.transport = rt
		f.Summary.SetTransport(describeTransport(cfg.Transport))
	} else {
		f.Summary.SetTransport(fmt.Sprintf("custom (%T)", f.transport))
	}

	chain, err := f.buildChain(ctx, o)
	if err != nil {
		_ = f.Shutdown(ctx)
		return nil, err
	}

	mode := fetch.AllowDuplicates
	if cfg.Registration == config.RegistrationIgnore {
		mode = fetch.IgnoreDuplicates
	}
	f.Fetcher = fetch.New(
		fetch.WithName(cfg.Name),
		fetch.WithTransport(f.transport),
		fetch.WithLogger(f.Logger.WithComponent("fetch")),
		fetch.WithRegistrationMode(mode),
		fetch.WithMiddlewares(chain...),
	)

	f.Logger.Info("fetcher ready", logger.Fields(
		logger.FieldFetcher, cfg.Name,
		"interceptors", f.Summary.Enabled(),
	))
	return f, nil
}

// buildChain creates the configured interceptors, outermost first.
// Disabled positions are nil and skipped by fetch.WithMiddlewares.
func (f *Fetcher) buildChain(ctx context.Context, o *fetcherOptions) ([]fetch.Interceptor, error) {
	cfg := f.Config
	ic := cfg.Interceptors
	log := f.Logger.WithComponent("fetch")

	baseURL, err := interceptor.BaseURL(ic.BaseURL)
	if err != nil {
		return nil, err
	}
	tracing, err := f.tracing(ctx, o)
	if err != nil {
		return nil, err
	}
	metrics, err := f.metrics(ctx, o)
	if err != nil {
		return nil, err
	}
	prom, err := f.prometheus(o)
	if err != nil {
		return nil, err
	}
	auth, err := buildAuth(ic.Auth, o.jwtKey)
	if err != nil {
		return nil, err
	}

	if ic.RateLimit.Enabled {
		f.RateLimiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:    cfg.Name,
			Rate:    ic.RateLimit.Rate,
			Burst:   ic.RateLimit.Burst,
			MaxWait: ic.RateLimit.MaxWait,
			OnLimit: func(name string) {
				log.Warn("rate limited", logger.Fields(logger.FieldFetcher, name))
			},
		})
	}
	if ic.CircuitBreaker.Enabled {
		f.CircuitBreaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             cfg.Name,
			MaxFailures:      ic.CircuitBreaker.MaxFailures,
			Timeout:          ic.CircuitBreaker.Timeout,
			HalfOpenMaxCalls: ic.CircuitBreaker.HalfOpenMaxCalls,
			OnStateChange: func(name string, from, to resilience.State) {
				log.Warn("circuit state changed", logger.Fields(
					logger.FieldFetcher, name,
					"from", from.String(),
					"to", to.String(),
				))
			},
		})
	}
	if ic.Bulkhead.Enabled {
		f.Bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.Name,
			MaxConcurrent: ic.Bulkhead.MaxConcurrent,
			MaxWait:       ic.Bulkhead.MaxWait,
			OnReject: func(name string) {
				log.Warn("bulkhead full", logger.Fields(logger.FieldFetcher, name))
			},
		})
	}

	headers := make(http.Header, len(ic.Headers))
	for k, v := range ic.Headers {
		headers.Set(k, v)
	}

	chain := []fetch.Interceptor{
		f.track("recovery", fetch.When(ic.Recovery, interceptor.Recovery(log)), ""),
		f.track("request_id", fetch.When(ic.RequestID.Enabled, interceptor.RequestID(ic.RequestID.Header)), ic.RequestID.Header),
		f.track("base_url", baseURL, ic.BaseURL),
		f.track("headers", interceptor.DefaultHeaders(headers), fmt.Sprintf("%d defaults", len(headers))),
		f.track("tracing", tracing, cfg.Telemetry.Endpoint),
		f.track("metrics", metrics, cfg.Telemetry.Endpoint),
		f.track("prometheus", prom, ic.Prometheus.Namespace),
		f.track("access_log", fetch.When(ic.AccessLog, interceptor.Logging(log)), ""),
		f.track("rate_limit", interceptor.RateLimit(f.RateLimiter), ""),
		f.track("circuit_breaker", interceptor.CircuitBreaker(f.CircuitBreaker), ""),
		f.track("bulkhead", interceptor.Bulkhead(f.Bulkhead), ""),
		f.track("timeout", interceptor.Timeout(ic.Timeout), ic.Timeout.String()),
		f.track("auth", auth, ic.Auth.Type),
		f.track("status_errors", fetch.When(ic.StatusErrors, interceptor.StatusErrors()), ""),
		f.track("decompress", fetch.When(ic.Decompress, interceptor.Decompress()), ""),
	}
	return append(chain, o.extra...), nil
}

// track records a chain position in the summary and passes i through.
func (f *Fetcher) track(name string, i fetch.Interceptor, detail string) fetch.Interceptor {
	enabled := i != nil
	if !enabled {
		detail = ""
	}
	f.Summary.Track(name, enabled, detail)
	return i
}

func (f *Fetcher) tracing(ctx context.Context, o *fetcherOptions) (fetch.Interceptor, error) {
	cfg := f.Config
	if !cfg.Interceptors.Tracing {
		return nil, nil
	}
	tp := o.tracerProvider
	if tp == nil && cfg.Telemetry.Endpoint != "" {
		sdkTP, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			SampleRate:     cfg.Telemetry.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: tracing: %w", err)
		}
		f.OnStop(sdkTP.Shutdown)
		tp = sdkTP
	}

	opts := []interceptor.TracingOption{
		interceptor.WithFetcherName(cfg.Name),
		interceptor.WithPropagator(observability.Propagator()),
	}
	if tp != nil {
		opts = append(opts, interceptor.WithTracerProvider(tp))
	}
	return interceptor.Tracing(opts...), nil
}

func (f *Fetcher) metrics(ctx context.Context, o *fetcherOptions) (fetch.Interceptor, error) {
	cfg := f.Config
	if !cfg.Interceptors.Metrics {
		return nil, nil
	}
	mp := o.meterProvider
	if mp == nil && cfg.Telemetry.Endpoint != "" {
		sdkMP, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			Interval:       cfg.Telemetry.MetricInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: metrics: %w", err)
		}
		f.OnStop(sdkMP.Shutdown)
		mp = sdkMP
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	m, err := observability.NewClientMetrics(mp.Meter(observability.TracerName))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: metrics: %w", err)
	}
	return interceptor.Metrics(m, cfg.Name), nil
}

func (f *Fetcher) prometheus(o *fetcherOptions) (fetch.Interceptor, error) {
	pc := f.Config.Interceptors.Prometheus
	if !pc.Enabled {
		return nil, nil
	}
	m, err := interceptor.NewPrometheusMetrics(o.registerer, pc.Namespace)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: prometheus: %w", err)
	}
	return interceptor.Prometheus(m, f.Config.Name), nil
}

func buildAuth(a config.AuthConfig, jwtKey any) (fetch.Interceptor, error) {
	switch a.Type {
	case config.AuthBearer:
		return interceptor.Bearer(a.Token), nil
	case config.AuthBasic:
		return interceptor.Basic(a.Username, a.Password), nil
	case config.AuthAPIKey:
		if a.In == "query" {
			return interceptor.APIKeyQuery(a.Name, a.Key), nil
		}
		return interceptor.APIKey(a.Name, a.Key), nil
	case config.AuthJWT:
		signer, err := interceptor.NewJWTSigner(interceptor.JWTConfig{
			Secret:     a.JWT.Secret,
			PrivateKey: jwtKey,
			Method:     interceptor.SigningMethod(a.JWT.Method),
			Issuer:     a.JWT.Issuer,
			Subject:    a.JWT.Subject,
			Audience:   a.JWT.Audience,
			TTL:        a.JWT.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: jwt auth: %w", err)
		}
		return signer, nil
	default:
		return nil, nil
	}
}

func describeTransport(c transport.Config) string {
	desc := "http2=" + c.HTTP2.Mode
	if c.TLS.IsEnabled() {
		desc += ", tls"
	}
	if c.Proxy != "" {
		desc += ", proxy"
	}
	return desc
}

// Shutdown runs the stop hooks and closes idle transport connections.
// Calling it more than once is a no-op.
func (f *Fetcher) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	hooks := f.onStop
	f.onStop = nil
	f.mu.Unlock()

	err := runHooks(ctx, hooks)
	if err != nil {
		f.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
	}
	if c, ok := f.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	f.Logger.Debug("fetcher stopped", logger.Fields(logger.FieldFetcher, f.Config.Name))
	return err
}
