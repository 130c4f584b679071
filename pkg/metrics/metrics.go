package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records the request and fulfillment counters exposed on /metrics.
type Metrics struct {
	httpDuration       *prometheus.HistogramVec
	ordersFulfilled    *prometheus.CounterVec
	fulfillmentFailure *prometheus.CounterVec
	codesSold          prometheus.Counter
	outboxPublished    prometheus.Counter
	outboxFailures     prometheus.Counter
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	ordersFulfilled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Orders fulfilled, labeled by fulfillment path.",
	}, []string{"path"})
	fulfillmentFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_failures_total",
		Help: "Fulfillment attempts rejected, labeled by error code.",
	}, []string{"code"})
	codesSold := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "codes_sold_total",
		Help: "Redemption codes transitioned to sold.",
	})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events published to the broadcast channel.",
	})
	outboxFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	reg.MustRegister(httpDuration, ordersFulfilled, fulfillmentFailure,
		codesSold, outboxPublished, outboxFailures)
	return &Metrics{
		httpDuration:       httpDuration,
		ordersFulfilled:    ordersFulfilled,
		fulfillmentFailure: fulfillmentFailure,
		codesSold:          codesSold,
		outboxPublished:    outboxPublished,
		outboxFailures:     outboxFailures,
	}
}

// ObserveHTTP records one request's duration.
func (m *Metrics) ObserveHTTP(method, route, status string, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncOrderFulfilled counts a completed fulfillment on the named path.
func (m *Metrics) IncOrderFulfilled(path string) {
	if m == nil || m.ordersFulfilled == nil {
		return
	}
	if path == "" {
		path = "unknown"
	}
	m.ordersFulfilled.WithLabelValues(path).Inc()
}

// IncFulfillmentFailure counts a rejected fulfillment by error code.
func (m *Metrics) IncFulfillmentFailure(code string) {
	if m == nil || m.fulfillmentFailure == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.fulfillmentFailure.WithLabelValues(code).Inc()
}

// AddCodesSold counts codes that moved to sold.
func (m *Metrics) AddCodesSold(n int) {
	if m == nil || m.codesSold == nil || n <= 0 {
		return
	}
	m.codesSold.Add(float64(n))
}

// IncOutboxPublished counts a successfully broadcast event.
func (m *Metrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

// IncOutboxFailure counts a failed broadcast attempt.
func (m *Metrics) IncOutboxFailure() {
	if m == nil || m.outboxFailures == nil {
		return
	}
	m.outboxFailures.Inc()
}
