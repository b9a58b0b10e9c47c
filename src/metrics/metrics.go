// Package metrics exposes Prometheus instruments for the cache, the provider
// client, and HTTP requests. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	cacheLookups     *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates the instruments on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placefinder_search_cache_total",
			Help: "Search cache lookups by result",
		}, []string{"result"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placefinder_upstream_failures_total",
			Help: "Failed provider calls by operation",
		}, []string{"op"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placefinder_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "status"}),
	}
	m.registry.MustRegister(m.cacheLookups, m.upstreamFailures, m.requestDuration)
	return m
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) UpstreamFailure(op string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRequest(path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
