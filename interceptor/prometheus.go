package interceptor

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/observability"
)

// PrometheusMetrics holds the Prometheus collectors for outgoing calls.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
// Collectors already registered by an earlier call are reused, so several
// fetchers can share one registry.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_requests_total",
				Help:      "Outgoing HTTP calls",
			},
			[]string{"fetcher", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_request_duration_seconds",
				Help:      "Outgoing HTTP call duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"fetcher", "method"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_client_requests_in_flight",
				Help:      "Outgoing HTTP calls in flight",
			},
			[]string{"fetcher"},
		),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.inFlight, err = register(reg, m.inFlight); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Prometheus records every call on m. A nil m returns nil.
func Prometheus(m *PrometheusMetrics, fetcherName string) fetch.Interceptor {
	if m == nil {
		return nil
	}
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		method := c.Request.Method
		gauge := m.inFlight.WithLabelValues(fetcherName)
		gauge.Inc()
		start := time.Now()

		resp, err := next()

		gauge.Dec()
		status, _ := outcome(resp, err)
		m.requests.WithLabelValues(fetcherName, method, observability.StatusLabel(status)).Inc()
		m.duration.WithLabelValues(fetcherName, method).Observe(time.Since(start).Seconds())
		return resp, err
	})
}
