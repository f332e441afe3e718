package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal       prometheus.Counter
	CoalescedTotal      prometheus.Counter
	RateLimitDropsTotal prometheus.Counter

	UpstreamErrors      *prometheus.CounterVec
	UpstreamLatency     *prometheus.HistogramVec
	PollRounds          prometheus.Histogram
	AvailableHotels     prometheus.Histogram
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	Registry            *prometheus.Registry
}

// Create Prometheus collectors and register them
func NewMetrics(p *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotel_search_requests_total",
			Help: "Total number of incoming search requests",
		}),
		CoalescedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotel_search_coalesced_total",
			Help: "Page requests served by an identical in-flight reconcile",
		}),
		RateLimitDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotel_ratelimit_drops_total",
			Help: "Requests dropped due to rate limiting",
		}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Failed upstream calls by operation",
		}, []string{"op"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_latency_seconds",
				Help:    "Latency of upstream search, anchor and availability calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		PollRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "availability_poll_rounds",
			Help:    "Rounds used by one availability poll",
			Buckets: prometheus.LinearBuckets(1, 1, 6),
		}),
		AvailableHotels: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_available_hotels",
			Help:    "Available hotels found per reconciled page",
			Buckets: prometheus.LinearBuckets(0, 10, 10),
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		Registry: p,
	}

	p.MustRegister(
		m.RequestsTotal,
		m.CoalescedTotal,
		m.RateLimitDropsTotal,
		m.UpstreamErrors,
		m.UpstreamLatency,
		m.PollRounds,
		m.AvailableHotels,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

func (m *Metrics) IncRequests()       { m.RequestsTotal.Inc() }
func (m *Metrics) IncCoalesced()      { m.CoalescedTotal.Inc() }
func (m *Metrics) IncRateLimitDrops() { m.RateLimitDropsTotal.Inc() }

func (m *Metrics) ObserveUpstreamLatency(op string, seconds float64) {
	m.UpstreamLatency.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) IncUpstreamFailure(op string) {
	m.UpstreamErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObservePollRounds(rounds int) {
	m.PollRounds.Observe(float64(rounds))
}

func (m *Metrics) ObserveAvailableHotels(n int) {
	m.AvailableHotels.Observe(float64(n))
}

func (m *Metrics) ObserveHTTPRequestDuration(method string, path string, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func (m *Metrics) IncHTTPRequestsTotal(method string, path string, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
