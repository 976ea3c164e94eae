package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/httpware/logger"
	"github.com/kbukum/httpware/transport"
)

// Registration modes for interceptors added through Use.
const (
	RegistrationAllow  = "allow"
	RegistrationIgnore = "ignore"
)

// Auth types.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthAPIKey = "api_key"
	AuthJWT    = "jwt"
)

// Config describes one Fetcher: its transport and the interceptors seeded
// in front of it.
//
// Example config.yml:
//
//	name: billing-client
//	environment: production
//	transport:
//	  http2:
//	    mode: tuned
//	interceptors:
//	  base_url: https://billing.internal
//	  timeout: 5s
//	  request_id:
//	    enabled: true
//	  circuit_breaker:
//	    enabled: true
//	    max_failures: 5
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`

	// Registration controls duplicate handling for Use: "allow" keeps
	// every registration, "ignore" returns the existing handle.
	Registration string `yaml:"registration" mapstructure:"registration" validate:"oneof=allow ignore"`

	Logging      logger.Config      `yaml:"logging" mapstructure:"logging"`
	Transport    transport.Config   `yaml:"transport" mapstructure:"transport"`
	Interceptors InterceptorsConfig `yaml:"interceptors" mapstructure:"interceptors"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" mapstructure:"telemetry"`
}

// InterceptorsConfig toggles the built-in interceptors. They are seeded in
// a fixed order, outermost first: recovery, request_id, base_url, headers,
// tracing, metrics, prometheus, access_log, rate_limit, circuit_breaker,
// bulkhead, timeout, auth, status_errors, decompress.
type InterceptorsConfig struct {
	Recovery   bool             `yaml:"recovery" mapstructure:"recovery"`
	RequestID  RequestIDConfig  `yaml:"request_id" mapstructure:"request_id"`
	Tracing    bool             `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool             `yaml:"metrics" mapstructure:"metrics"`
	Prometheus PrometheusConfig `yaml:"prometheus" mapstructure:"prometheus"`
	AccessLog  bool             `yaml:"access_log" mapstructure:"access_log"`

	RateLimit      RateLimitConfig      `yaml:"rate_limit" mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Bulkhead       BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`

	// Timeout bounds each call that has no deadline of its own. Zero disables it.
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	BaseURL string            `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	Auth    AuthConfig        `yaml:"auth" mapstructure:"auth"`

	Decompress   bool `yaml:"decompress" mapstructure:"decompress"`
	StatusErrors bool `yaml:"status_errors" mapstructure:"status_errors"`
}

// RequestIDConfig configures the request ID interceptor.
type RequestIDConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Header  string `yaml:"header" mapstructure:"header"`
}

// PrometheusConfig configures the Prometheus interceptor.
type PrometheusConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// RateLimitConfig configures the client-side rate limiter.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Rate    float64       `yaml:"rate" mapstructure:"rate" validate:"required_if=Enabled true,gte=0"`
	Burst   int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxFailures      int           `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"gte=0"`
}

// BulkheadConfig configures the concurrency limiter.
type BulkheadConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type     string `yaml:"type" mapstructure:"type" validate:"oneof=none bearer basic api_key jwt"`
	Token    string `yaml:"token" mapstructure:"token" validate:"required_if=Type bearer"`
	Username string `yaml:"username" mapstructure:"username" validate:"required_if=Type basic"`
	Password string `yaml:"password" mapstructure:"password"`
	Key      string `yaml:"key" mapstructure:"key" validate:"required_if=Type api_key"`
	// In is where the API key goes: "header" or "query".
	In   string    `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`
	Name string    `yaml:"name" mapstructure:"name"`
	JWT  JWTConfig `yaml:"jwt" mapstructure:"jwt"`
}

// JWTConfig configures per-request signed tokens. HS* methods sign with
// Secret; RS* and ES* keys cannot live in a config file and are passed to
// bootstrap.NewFetcher with WithJWTPrivateKey.
type JWTConfig struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Method   string        `yaml:"method" mapstructure:"method" validate:"omitempty,oneof=HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Subject  string        `yaml:"subject" mapstructure:"subject"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// TelemetryConfig configures OTLP export for the tracing and metrics
// interceptors. With an empty Endpoint the global providers are used as-is.
type TelemetryConfig struct {
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults applies default values to the configuration.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Registration == "" {
		c.Registration = RegistrationAllow
	}
	c.Logging.ApplyDefaults()
	c.Transport.ApplyDefaults()

	ic := &c.Interceptors
	if ic.Auth.Type == "" {
		ic.Auth.Type = AuthNone
	}
	if ic.Auth.Type == AuthAPIKey {
		if ic.Auth.In == "" {
			ic.Auth.In = "header"
		}
		if ic.Auth.Name == "" {
			ic.Auth.Name = "X-API-Key"
		}
	}
	if ic.Prometheus.Namespace == "" {
		ic.Prometheus.Namespace = "httpware"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.MetricInterval == 0 {
		c.Telemetry.MetricInterval = 15 * time.Second
	}
}

// Validate runs the struct tag rules over the whole tree, then the checks
// the nested packages own.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if jwt := c.Interceptors.Auth.JWT; c.Interceptors.Auth.Type == AuthJWT && jwt.Secret == "" &&
		(jwt.Method == "" || strings.HasPrefix(jwt.Method, "HS")) {
		return fmt.Errorf("config.interceptors.auth.jwt.secret is required for HMAC signing")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("config.transport: %w", err)
	}
	return nil
}
