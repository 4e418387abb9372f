// Package metrics provides Prometheus metrics for the poster service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GeminiCallsTotal counts calls to the Gemini API by kind (text, image) and status.
	GeminiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poster",
			Name:      "gemini_calls_total",
			Help:      "Total number of Gemini generation calls",
		},
		[]string{"kind", "status"},
	)

	// GeminiCallDuration measures Gemini call duration.
	GeminiCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poster",
			Name:      "gemini_call_duration_seconds",
			Help:      "Duration of Gemini generation calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"kind"},
	)

	// GenerationsTotal counts settled poster generations (text and image together) by status.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poster",
			Name:      "generations_total",
			Help:      "Total number of settled poster generations",
		},
		[]string{"status"},
	)

	// GenerationsInFlight tracks sessions currently in the Generating state.
	GenerationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poster",
			Name:      "generations_in_flight",
			Help:      "Number of poster generations in flight",
		},
	)

	// ActiveSessions tracks live session controllers.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poster",
			Name:      "active_sessions",
			Help:      "Number of live poster sessions",
		},
	)
)

// RecordGeminiCall records one Gemini call.
func RecordGeminiCall(kind, status string, duration float64) {
	GeminiCallsTotal.WithLabelValues(kind, status).Inc()
	GeminiCallDuration.WithLabelValues(kind).Observe(duration)
}

// RecordGeneration records a settled generation.
func RecordGeneration(status string) {
	GenerationsTotal.WithLabelValues(status).Inc()
}
