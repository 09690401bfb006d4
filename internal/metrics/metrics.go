package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kairon"

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend requests issued by the client, by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	slotResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_resolutions_total",
			Help:      "Slot resolutions by result (ok, failed, stale).",
		},
		[]string{"result"},
	)

	wizardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Booking wizard events by step and outcome.",
		},
		[]string{"step", "event", "outcome"},
	)

	mockHTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mock",
			Name:      "http_requests_total",
			Help:      "Requests served by the mock backend.",
		},
		[]string{"route", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, apiLatency, slotResolutions, wizardTransitions, mockHTTPRequests)
	})
}

// ObserveAPI records one backend call.
func ObserveAPI(endpoint, outcome string, elapsed time.Duration) {
	apiRequests.WithLabelValues(endpoint, outcome).Inc()
	apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncSlotResolution counts a slot resolution result.
func IncSlotResolution(result string) {
	slotResolutions.WithLabelValues(result).Inc()
}

// IncWizard counts a wizard event.
func IncWizard(step, event, outcome string) {
	wizardTransitions.WithLabelValues(step, event, outcome).Inc()
}

// IncMockHTTP counts a request served by the mock backend.
func IncMockHTTP(route, status string) {
	mockHTTPRequests.WithLabelValues(route, status).Inc()
}
