package bootstrap

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/httpware/config"
	"github.com/kbukum/httpware/errors"
	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
	"github.com/kbukum/httpware/observability"
	"github.com/kbukum/httpware/resilience"
)

// echoServer answers with status and records the last request it saw.
type echoServer struct {
	*httptest.Server
	mu     sync.Mutex
	status int
	last   *http.Request
	calls  int
}

func newEchoServer(t *testing.T, status int) *echoServer {
	t.Helper()
	s := &echoServer{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.last = r
		s.calls++
		status := s.status
		s.mu.Unlock()
		w.WriteHeader(status)
		io.WriteString(w, "ok")
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *echoServer) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func newConfig() *config.Config {
	return &config.Config{Name: "billing"}
}

func mustNew(t *testing.T, cfg *config.Config, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	f, err := NewFetcher(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	t.Cleanup(func() { f.Shutdown(context.Background()) })
	return f
}

func fetchBody(t *testing.T, f *Fetcher, input string) (*http.Response, string, error) {
	t.Helper()
	resp, err := f.Fetch(context.Background(), input)
	if resp == nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b), err
}

func TestNewFetcher_InvalidInput(t *testing.T) {
	if _, err := NewFetcher(context.Background(), nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := newConfig()
	cfg.Environment = "moon"
	_, err := NewFetcher(context.Background(), cfg, WithLogger(logger.Nop()))
	if !errors.IsInvalidConfig(err) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}

	cfg = newConfig()
	cfg.Interceptors.Auth = config.AuthConfig{Type: config.AuthJWT, JWT: config.JWTConfig{Method: "ES256"}}
	if _, err := NewFetcher(context.Background(), cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for ES256 without a private key")
	}
}

func TestNewFetcher_NothingEnabled(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK)
	f := mustNew(t, newConfig())

	if f.Len() != 0 || len(f.Summary.Enabled()) != 0 {
		t.Errorf("expected empty chain, got %d %v", f.Len(), f.Summary.Enabled())
	}
	if f.CircuitBreaker != nil || f.RateLimiter != nil || f.Bulkhead != nil {
		t.Error("expected no resilience components")
	}
	if f.Name() != "billing" {
		t.Errorf("expected fetcher name billing, got %q", f.Name())
	}

	resp, body, err := fetchBody(t, f, srv.URL+"/ping")
	if err != nil || resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected result %v %q %v", resp, body, err)
	}
}

func TestNewFetcher_ConfiguredChain(t *testing.T) {
	srv := newEchoServer(t, http.StatusNotFound)
	cfg := newConfig()
	cfg.Interceptors = config.InterceptorsConfig{
		Recovery:     true,
		RequestID:    config.RequestIDConfig{Enabled: true},
		BaseURL:      srv.URL + "/v1",
		Headers:      map[string]string{"x-team": "payments"},
		AccessLog:    true,
		Timeout:      time.Second,
		Auth:         config.AuthConfig{Type: config.AuthBearer, Token: "abc"},
		StatusErrors: true,
		Decompress:   true,
	}
	f := mustNew(t, cfg)

	want := []string{"recovery", "request_id", "base_url", "headers", "access_log", "timeout", "auth", "status_errors", "decompress"}
	if got := f.Summary.Enabled(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected chain %v, got %v", want, got)
	}
	if f.Len() != len(want) {
		t.Errorf("expected %d installed interceptors, got %d", len(want), f.Len())
	}

	resp, _, err := fetchBody(t, f, "invoices/42")
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}

	r := srv.lastRequest()
	if r.URL.Path != "/v1/invoices/42" {
		t.Errorf("expected base url applied, got %s", r.URL.Path)
	}
	if r.Header.Get("Authorization") != "Bearer abc" || r.Header.Get("X-Team") != "payments" {
		t.Errorf("expected auth and default headers, got %v", r.Header)
	}
	if r.Header.Get("X-Request-Id") == "" || r.Header.Get("Accept-Encoding") != "zstd, gzip" {
		t.Errorf("expected request id and accept-encoding, got %v", r.Header)
	}
}

func TestNewFetcher_UseRunsAfterConfigured(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK)
	cfg := newConfig()
	cfg.Interceptors.Headers = map[string]string{"x-team": "payments"}

	var extraSaw, usedSaw string
	f := mustNew(t, cfg, WithInterceptors(fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		extraSaw = c.Request.Header.Get("X-Team")
		return next()
	})))
	f.UseFunc(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		usedSaw = c.Request.Header.Get("X-Team")
		return next()
	})

	if _, _, err := fetchBody(t, f, srv.URL); err != nil {
		t.Fatal(err)
	}
	if extraSaw != "payments" || usedSaw != "payments" {
		t.Errorf("expected later interceptors to see defaults, got %q %q", extraSaw, usedSaw)
	}
}

func TestNewFetcher_RegistrationMode(t *testing.T) {
	cfg := newConfig()
	cfg.Registration = config.RegistrationIgnore
	f := mustNew(t, cfg, WithTransport(http.DefaultTransport))

	i := &countingInterceptor{}
	h1 := f.Use(i)
	h2 := f.Use(i)
	if h1 != h2 || f.Len() != 1 {
		t.Errorf("expected duplicate ignored, got handles %d %d and len %d", h1, h2, f.Len())
	}
}

type countingInterceptor struct{ n int }

func (c *countingInterceptor) Intercept(_ *fetch.Context, next fetch.Next) (*http.Response, error) {
	c.n++
	return next()
}

func TestNewFetcher_Resilience(t *testing.T) {
	srv := newEchoServer(t, http.StatusBadGateway)
	cfg := newConfig()
	cfg.Interceptors.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxFailures: 2, Timeout: time.Hour}
	cfg.Interceptors.RateLimit = config.RateLimitConfig{Enabled: true, Rate: 1000}
	cfg.Interceptors.Bulkhead = config.BulkheadConfig{Enabled: true, MaxConcurrent: 4}
	f := mustNew(t, cfg)

	if f.CircuitBreaker == nil || f.RateLimiter == nil || f.Bulkhead == nil {
		t.Fatal("expected resilience components")
	}
	if f.Bulkhead.MaxConcurrent() != 4 {
		t.Errorf("expected bulkhead size 4, got %d", f.Bulkhead.MaxConcurrent())
	}

	for i := 0; i < 2; i++ {
		if _, _, err := fetchBody(t, f, srv.URL); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if f.CircuitBreaker.State() != resilience.StateOpen {
		t.Fatalf("expected open circuit, got %s", f.CircuitBreaker.State())
	}
	if _, _, err := fetchBody(t, f, srv.URL); !errors.IsCircuitOpen(err) {
		t.Errorf("expected CIRCUIT_OPEN, got %v", err)
	}
	if f.Bulkhead.InUse() != 0 {
		t.Errorf("expected all bulkhead slots released, got %d", f.Bulkhead.InUse())
	}
}

func TestNewFetcher_Observability(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	reg := prometheus.NewRegistry()

	cfg := newConfig()
	cfg.Interceptors.Tracing = true
	cfg.Interceptors.Metrics = true
	cfg.Interceptors.Prometheus = config.PrometheusConfig{Enabled: true, Namespace: "bootstrap_test"}
	f := mustNew(t, cfg, WithTracerProvider(tp), WithMeterProvider(mp), WithRegisterer(reg))

	if _, _, err := fetchBody(t, f, srv.URL); err != nil {
		t.Fatal(err)
	}

	if spans := recorder.Ended(); len(spans) != 1 || spans[0].Name() != "HTTP GET" {
		t.Errorf("expected one client span, got %v", spans)
	}
	if srv.lastRequest().Header.Get("traceparent") == "" {
		t.Error("expected trace context injected")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var sawOTel bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == observability.MetricRequestTotal {
				sawOTel = true
			}
		}
	}
	if !sawOTel {
		t.Error("expected OTel request counter")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sawProm bool
	for _, mf := range families {
		if mf.GetName() == "bootstrap_test_http_client_requests_total" {
			sawProm = true
		}
	}
	if !sawProm {
		t.Error("expected Prometheus request counter")
	}
}

func TestNewFetcher_JWT(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		jwt    config.JWTConfig
		opts   []Option
		verify any
	}{
		{"hmac", config.JWTConfig{Secret: "s3cret", Issuer: "billing"}, nil, []byte("s3cret")},
		{"ecdsa", config.JWTConfig{Method: "ES256", Issuer: "billing"}, []Option{WithJWTPrivateKey(key)}, &key.PublicKey},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newEchoServer(t, http.StatusOK)
			cfg := newConfig()
			cfg.Interceptors.Auth = config.AuthConfig{Type: config.AuthJWT, JWT: tc.jwt}
			f := mustNew(t, cfg, tc.opts...)

			if _, _, err := fetchBody(t, f, srv.URL); err != nil {
				t.Fatal(err)
			}
			token := strings.TrimPrefix(srv.lastRequest().Header.Get("Authorization"), "Bearer ")
			claims := gojwt.MapClaims{}
			if _, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
				return tc.verify, nil
			}); err != nil {
				t.Fatalf("token did not verify: %v", err)
			}
			if claims["iss"] != "billing" {
				t.Errorf("unexpected claims %v", claims)
			}
		})
	}
}

func TestNewFetcher_APIKeyQuery(t *testing.T) {
	srv := newEchoServer(t, http.StatusOK)
	cfg := newConfig()
	cfg.Interceptors.Auth = config.AuthConfig{Type: config.AuthAPIKey, Key: "k-1", In: "query", Name: "api_key"}
	f := mustNew(t, cfg)

	if _, _, err := fetchBody(t, f, srv.URL+"/search?q=x"); err != nil {
		t.Fatal(err)
	}
	q := srv.lastRequest().URL.Query()
	if q.Get("api_key") != "k-1" || q.Get("q") != "x" {
		t.Errorf("expected api key in query, got %v", q)
	}
}

func TestFetcher_Shutdown(t *testing.T) {
	f := mustNew(t, newConfig())

	var order []string
	f.OnStop(
		func(context.Context) error { order = append(order, "first"); return nil },
		func(context.Context) error { order = append(order, "second"); return stderrors.New("flush failed") },
	)

	err := f.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Errorf("expected hook error, got %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Errorf("expected reverse order, got %v", order)
	}
	if err := f.Shutdown(context.Background()); err != nil || len(order) != 2 {
		t.Errorf("expected second shutdown to be a no-op, got %v %v", err, order)
	}
}

func TestSummary(t *testing.T) {
	cfg := newConfig()
	cfg.Version = "1.2.0"
	cfg.Interceptors.RequestID.Enabled = true
	cfg.Interceptors.Timeout = 2 * time.Second
	f := mustNew(t, cfg)

	var buf bytes.Buffer
	f.Summary.Write(&buf)
	out := buf.String()
	for _, want := range []string{"billing v1.2.0", "request_id", "timeout: 2s", "transport: http2=auto", "interceptors disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "circuit_breaker") {
		t.Errorf("summary lists a disabled interceptor:\n%s", out)
	}

	chain := f.Summary.Chain()
	if len(chain) != 15 || chain[0].Name != "recovery" || chain[len(chain)-1].Name != "decompress" {
		t.Errorf("unexpected chain %+v", chain)
	}
}
