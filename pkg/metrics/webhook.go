package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outcomes of processor webhook deliveries.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	swallowed *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
// A nil registerer yields a no-op recorder, used by tests.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received_total",
		Help: "Webhook events accepted after signature verification.",
	}, []string{"event_type"})
	swallowed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_swallowed_total",
		Help: "Webhook events acknowledged without a state change.",
	}, []string{"event_type", "reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed_total",
		Help: "Webhook events that returned a retryable failure.",
	}, []string{"event_type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(received, swallowed, failures, duration)
	return &WebhookMetrics{
		received:  received,
		swallowed: swallowed,
		failures:  failures,
		duration:  duration,
	}
}

// IncReceived counts a verified event of the given type.
func (m *WebhookMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSwallowed counts an event acknowledged without a write.
func (m *WebhookMetrics) IncSwallowed(eventType, reason string) {
	if m == nil || m.swallowed == nil {
		return
	}
	m.swallowed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

// IncFailure counts an event whose handling failed and will be retried.
func (m *WebhookMetrics) IncFailure(eventType string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveDuration records the handling latency for the event type.
func (m *WebhookMetrics) ObserveDuration(eventType string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
