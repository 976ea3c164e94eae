package transport

import (
	"fmt"
	"net/url"
	"time"
)

// HTTP2 modes.
const (
	// HTTP2Auto leaves protocol negotiation to net/http.
	HTTP2Auto = "auto"
	// HTTP2Tuned configures HTTP/2 through x/net/http2 so health-check
	// pings and frame limits can be set.
	HTTP2Tuned = "tuned"
	// HTTP2Cleartext speaks h2c (prior-knowledge HTTP/2 without TLS).
	HTTP2Cleartext = "h2c"
	// HTTP2Disabled forces HTTP/1.1.
	HTTP2Disabled = "disabled"
)

const (
	defaultDialTimeout         = 30 * time.Second
	defaultKeepAlive           = 30 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultIdleConnTimeout     = 90 * time.Second
	defaultMaxIdleConns        = 100
)

// Config configures the terminal transport.
type Config struct {
	DialTimeout           time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`
	KeepAlive             time.Duration `yaml:"keep_alive" mapstructure:"keep_alive" validate:"gte=0"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout" validate:"gte=0"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" mapstructure:"response_header_timeout" validate:"gte=0"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout" validate:"gte=0"`

	MaxIdleConns        int  `yaml:"max_idle_conns" mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost int  `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`
	MaxConnsPerHost     int  `yaml:"max_conns_per_host" mapstructure:"max_conns_per_host" validate:"gte=0"`
	DisableKeepAlives   bool `yaml:"disable_keep_alives" mapstructure:"disable_keep_alives"`

	// Proxy is an explicit proxy URL. Empty means the environment
	// (HTTP_PROXY, HTTPS_PROXY, NO_PROXY) decides.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`

	HTTP2 HTTP2Config `yaml:"http2" mapstructure:"http2"`
	TLS   TLSConfig   `yaml:"tls" mapstructure:"tls"`
}

// HTTP2Config selects and tunes HTTP/2.
type HTTP2Config struct {
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=auto tuned h2c disabled"`
	// ReadIdleTimeout sends a health-check ping after this long without
	// frames. Zero disables pings. Tuned and h2c modes only.
	ReadIdleTimeout time.Duration `yaml:"read_idle_timeout" mapstructure:"read_idle_timeout" validate:"gte=0"`
	// PingTimeout closes the connection when a ping goes unanswered.
	PingTimeout time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout" validate:"gte=0"`
}

// ApplyDefaults fills in zero-value fields with the net/http defaults.
func (c *Config) ApplyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = defaultTLSHandshakeTimeout
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.HTTP2.Mode == "" {
		c.HTTP2.Mode = HTTP2Auto
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.HTTP2.Mode {
	case "", HTTP2Auto, HTTP2Tuned, HTTP2Cleartext, HTTP2Disabled:
	default:
		return fmt.Errorf("transport.http2.mode must be one of [auto, tuned, h2c, disabled] (got: %s)", c.HTTP2.Mode)
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return fmt.Errorf("transport.proxy: %w", err)
		}
	}
	if c.HTTP2.Mode == HTTP2Cleartext && c.TLS.IsEnabled() {
		return fmt.Errorf("transport: h2c cannot be combined with tls settings")
	}
	return c.TLS.Validate()
}
