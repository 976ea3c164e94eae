package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/http2"

	"github.com/kbukum/httpware/logger"
)

// New builds the terminal round tripper described by cfg.
//
// Every mode except h2c returns a clone of http.DefaultTransport, so the
// result keeps the standard proxy and connection-pool behavior. h2c returns
// an *http2.Transport that dials plain TCP and speaks HTTP/2 directly.
func New(cfg Config) (http.RoundTripper, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}

	if cfg.HTTP2.Mode == HTTP2Cleartext {
		logger.Debug("transport built", logger.Fields("http2", cfg.HTTP2.Mode))
		return &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
			ReadIdleTimeout: cfg.HTTP2.ReadIdleTimeout,
			PingTimeout:     cfg.HTTP2.PingTimeout,
		}, nil
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = dialer.DialContext
	t.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	t.IdleConnTimeout = cfg.IdleConnTimeout
	t.MaxIdleConns = cfg.MaxIdleConns
	t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	t.MaxConnsPerHost = cfg.MaxConnsPerHost
	t.DisableKeepAlives = cfg.DisableKeepAlives

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("transport.proxy: %w", err)
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}

	switch cfg.HTTP2.Mode {
	case HTTP2Tuned:
		t2, err := http2.ConfigureTransports(t)
		if err != nil {
			return nil, fmt.Errorf("transport: configure http2: %w", err)
		}
		t2.ReadIdleTimeout = cfg.HTTP2.ReadIdleTimeout
		t2.PingTimeout = cfg.HTTP2.PingTimeout
	case HTTP2Disabled:
		t.ForceAttemptHTTP2 = false
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	logger.Debug("transport built", logger.Fields(
		"http2", cfg.HTTP2.Mode,
		"tls", tlsCfg != nil,
		"proxy", cfg.Proxy != "",
	))
	return t, nil
}
