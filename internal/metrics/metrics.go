package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookcart"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	Checkouts        *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	CartOperations   *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	OutboxPublished  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkouts by final status and failure reason.",
		}, []string{"status", "reason"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Time spent in checkout, including the database transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		CartOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Cart operations by name and outcome.",
		}, []string{"operation", "result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_cache_lookups_total",
			Help:      "Cart cache lookups by result.",
		}, []string{"result"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Outbox events handed to the broker.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Requests,
		m.LatencyMS,
		m.Checkouts,
		m.CheckoutDuration,
		m.CartOperations,
		m.CacheLookups,
		m.OutboxPublished,
	)
	return m
}

func (m *Metrics) ObserveRequest(handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, http.StatusText(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) ObserveCheckout(status, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(status, reason).Inc()
	m.CheckoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CartOperation(operation, result string) {
	if m == nil {
		return
	}
	m.CartOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Published(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.OutboxPublished.WithLabelValues(result).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
