package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/httpware/errors"
)

func validConfig() Config {
	cfg := Config{Name: "billing"}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Name: "billing"}
	cfg.ApplyDefaults()

	if cfg.Environment != "development" || cfg.Registration != RegistrationAllow {
		t.Errorf("unexpected defaults %q %q", cfg.Environment, cfg.Registration)
	}
	if cfg.Logging.Level != "info" || cfg.Transport.HTTP2.Mode != "auto" {
		t.Errorf("nested defaults not applied: %+v %+v", cfg.Logging, cfg.Transport.HTTP2)
	}
	if cfg.Interceptors.Auth.Type != AuthNone || cfg.Interceptors.Prometheus.Namespace != "httpware" {
		t.Errorf("unexpected interceptor defaults %+v", cfg.Interceptors)
	}
	if cfg.Telemetry.SampleRate != 1.0 || cfg.Telemetry.MetricInterval != 15*time.Second {
		t.Errorf("unexpected telemetry defaults %+v", cfg.Telemetry)
	}

	t.Run("api key placement", func(t *testing.T) {
		cfg := Config{Name: "x", Interceptors: InterceptorsConfig{Auth: AuthConfig{Type: AuthAPIKey, Key: "k"}}}
		cfg.ApplyDefaults()
		if cfg.Interceptors.Auth.In != "header" || cfg.Interceptors.Auth.Name != "X-API-Key" {
			t.Errorf("unexpected api key defaults %+v", cfg.Interceptors.Auth)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "name"},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "environment"},
		{"bad registration", func(c *Config) { c.Registration = "dedupe" }, "registration"},
		{"negative timeout", func(c *Config) { c.Interceptors.Timeout = -time.Second }, "interceptors.timeout"},
		{"bad base url", func(c *Config) { c.Interceptors.BaseURL = "not a url" }, "interceptors.base_url"},
		{"bearer without token", func(c *Config) { c.Interceptors.Auth.Type = AuthBearer }, "interceptors.auth.token"},
		{"basic without username", func(c *Config) { c.Interceptors.Auth.Type = AuthBasic }, "interceptors.auth.username"},
		{"unknown auth", func(c *Config) { c.Interceptors.Auth.Type = "oauth" }, "interceptors.auth.type"},
		{"rate limit without rate", func(c *Config) { c.Interceptors.RateLimit.Enabled = true }, "interceptors.rate_limit.rate"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "telemetry.sample_rate"},
		{"bad endpoint", func(c *Config) { c.Telemetry.Endpoint = "collector" }, "telemetry.endpoint"},
		{"bad http2 mode", func(c *Config) { c.Transport.HTTP2.Mode = "h3" }, "transport.http2.mode"},
		{"cert without key", func(c *Config) { c.Transport.TLS.CertFile = "cert.pem" }, "transport.tls.key_file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.IsInvalidConfig(err) {
				t.Fatalf("expected INVALID_CONFIG, got %v", err)
			}
			appErr, _ := errors.AsAppError(err)
			fields, _ := appErr.Details["fields"].(map[string]string)
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("expected failure on %q, got %v", tc.field, fields)
			}
		})
	}
}

func TestConfigValidate_NestedChecks(t *testing.T) {
	t.Run("jwt without secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Interceptors.Auth.Type = AuthJWT
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jwt.secret") {
			t.Errorf("expected jwt secret error, got %v", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "loud"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "config.logging") {
			t.Errorf("expected logging error, got %v", err)
		}
	})

	t.Run("h2c with tls", func(t *testing.T) {
		cfg := validConfig()
		cfg.Transport.HTTP2.Mode = "h2c"
		cfg.Transport.TLS.SkipVerify = true
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "config.transport") {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: billing-client
environment: staging
registration: ignore
transport:
  dial_timeout: 2s
  http2:
    mode: tuned
interceptors:
  base_url: https://billing.example.com/v1
  timeout: 750ms
  headers:
    x-team: payments
  request_id:
    enabled: true
  circuit_breaker:
    enabled: true
    max_failures: 3
  auth:
    type: bearer
    token: abc
`)

	cfg, err := Load("ignored-name", WithConfigFile(path), WithEnvPrefix("HTTPWARE_TEST_NONE"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "billing-client" || cfg.Environment != "staging" || cfg.Registration != RegistrationIgnore {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	if cfg.Transport.DialTimeout != 2*time.Second || cfg.Transport.HTTP2.Mode != "tuned" {
		t.Errorf("unexpected transport %+v", cfg.Transport)
	}
	ic := cfg.Interceptors
	if ic.Timeout != 750*time.Millisecond || ic.BaseURL != "https://billing.example.com/v1" {
		t.Errorf("unexpected interceptors %+v", ic)
	}
	if ic.Headers["x-team"] != "payments" || !ic.RequestID.Enabled {
		t.Errorf("unexpected headers/request id %+v", ic)
	}
	if !ic.CircuitBreaker.Enabled || ic.CircuitBreaker.MaxFailures != 3 || ic.Auth.Token != "abc" {
		t.Errorf("unexpected circuit breaker/auth %+v", ic)
	}
}

func TestLoad_EnvOverridesWithPrefix(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: from-file\ninterceptors:\n  timeout: 1s\n")
	t.Setenv("HTTPWARE_INTERCEPTORS_TIMEOUT", "3s")
	t.Setenv("HTTPWARE_INTERCEPTORS_STATUS_ERRORS", "true")
	t.Setenv("INTERCEPTORS_DECOMPRESS", "true")

	cfg, err := Load("svc", WithConfigFile(path), WithEnvPrefix("httpware_"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Interceptors.Timeout != 3*time.Second {
		t.Errorf("expected env override 3s, got %v", cfg.Interceptors.Timeout)
	}
	if !cfg.Interceptors.StatusErrors {
		t.Error("expected status_errors from env")
	}
	if cfg.Interceptors.Decompress {
		t.Error("expected unprefixed variable ignored")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", "name: svc\n")
	envPath := writeFile(t, dir, ".env", "HTTPWARE_ENVFILE_TEST_INTERCEPTORS_BASE_URL=https://from-dotenv.example.com\n")
	t.Cleanup(func() { os.Unsetenv("HTTPWARE_ENVFILE_TEST_INTERCEPTORS_BASE_URL") })

	cfg, err := Load("svc", WithConfigFile(cfgPath), WithEnvFile(envPath), WithEnvPrefix("HTTPWARE_ENVFILE_TEST"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Interceptors.BaseURL != "https://from-dotenv.example.com" {
		t.Errorf("expected base url from .env, got %q", cfg.Interceptors.BaseURL)
	}
}

func TestLoad_ServiceNameDefault(t *testing.T) {
	cfg, err := Load("orders-client", WithConfigFile("/nonexistent/path.yml"),
		WithFileSystem(&mockFS{}), WithEnvPrefix("HTTPWARE_TEST_NONE"))
	if err != nil {
		t.Fatalf("expected defaults-only config to load, got %v", err)
	}
	if cfg.Name != "orders-client" {
		t.Errorf("expected service name as fetcher name, got %q", cfg.Name)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: svc\nenvironment: moon\n")
	if _, err := Load("svc", WithConfigFile(path), WithEnvPrefix("HTTPWARE_TEST_NONE")); !errors.IsInvalidConfig(err) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

func TestResolverWithMockFS(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]bool
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "cmd directory",
			files:      map[string]bool{"./cmd/my-svc/config.yml": true, "./cmd/my-svc/.env": true},
			wantConfig: "./cmd/my-svc/config.yml",
			wantEnv:    "./cmd/my-svc/.env",
		},
		{
			name:       "short name",
			files:      map[string]bool{"./cmd/svc/config.yml": true},
			wantConfig: "./cmd/svc/config.yml",
		},
		{
			name:       "service env file wins",
			files:      map[string]bool{".env.my-svc": true, ".env": true, "./config.yml": true},
			wantConfig: "./config.yml",
			wantEnv:    ".env.my-svc",
		},
		{
			name:       "per-service config dir and parent env",
			files:      map[string]bool{"../config/my-svc/config.yml": true, "../../.env": true},
			wantConfig: "../config/my-svc/config.yml",
			wantEnv:    "../../.env",
		},
		{name: "nothing found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &Resolver{FileSystem: &mockFS{files: tc.files}}
			files := resolver.ResolveFiles("my-svc", LoaderConfig{})
			if files.ConfigFile != tc.wantConfig || files.EnvFile != tc.wantEnv {
				t.Errorf("got %+v, want config=%q env=%q", files, tc.wantConfig, tc.wantEnv)
			}
		})
	}
}

func TestSearchDirs(t *testing.T) {
	dirs := searchDirs("acme-probe")
	if dirs[0] != "./cmd/acme-probe" || dirs[3] != "./cmd/probe" {
		t.Errorf("expected full then short cmd dirs first, got %v", dirs[:6])
	}
	if last := dirs[len(dirs)-1]; last != "" {
		t.Errorf("expected bare working directory last, got %q", last)
	}
	for _, d := range dirs {
		if strings.Contains(d, "//") {
			t.Errorf("malformed dir %q", d)
		}
	}
	if got := searchDirs("trailing-"); got[3] == "./cmd/" {
		t.Errorf("empty short name should not be searched: %v", got)
	}
}

func TestResolveFiles_ExplicitPaths(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("svc", LoaderConfig{ConfigFile: "/etc/svc.yml", EnvFile: "/etc/svc.env"})
	if files.ConfigFile != "/etc/svc.yml" || files.EnvFile != "/etc/svc.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	for _, opt := range []LoaderOption{
		WithFileSystem(fs),
		WithConfigFile("/path/to/config.yml"),
		WithEnvFile("/path/to/.env"),
		WithEnvPrefix("app_"),
	} {
		opt(&lc)
	}
	if lc.FileSystem != fs || lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("options not applied: %+v", lc)
	}
	if lc.EnvPrefix != "APP" {
		t.Errorf("expected normalized prefix APP, got %q", lc.EnvPrefix)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("INTERCEPTORS_BASE_URL")
	want := map[string]bool{
		"interceptors_base_url": false,
		"interceptors.base.url": false,
		"interceptors.base_url": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing variant %q in %v", k, variants)
		}
	}

	if got := generateEnvKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected single variant, got %v", got)
	}
}
