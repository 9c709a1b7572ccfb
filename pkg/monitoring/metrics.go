package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the privacy engine. A nil
// *Metrics is valid and records nothing, so callers never need guards.
type Metrics struct {
	accessDecisions *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	breakGlassTotal *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
}

// Access decision outcomes
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "decryption_failed"
)

// NewMetrics creates and registers the engine collectors on the given
// registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		accessDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privacy_access_decisions_total",
				Help: "Total access decisions by requester role, privacy level and outcome",
			},
			[]string{"role", "privacy_level", "outcome"},
		),
		recordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privacy_records_written_total",
				Help: "Total patient records written by privacy level",
			},
			[]string{"privacy_level"},
		),
		breakGlassTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privacy_break_glass_activations_total",
				Help: "Total break-glass emergency access activations",
			},
			[]string{"doctor_id"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "privacy_query_duration_seconds",
				Help:    "Patient data query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role"},
		),
	}
}

// RecordAccessDecision counts one per-record access decision
func (m *Metrics) RecordAccessDecision(role string, level int, outcome string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(role, strconv.Itoa(level), outcome).Inc()
}

// RecordWrite counts one stored patient record
func (m *Metrics) RecordWrite(level int) {
	if m == nil {
		return
	}
	m.recordsWritten.WithLabelValues(strconv.Itoa(level)).Inc()
}

// RecordBreakGlass counts one break-glass activation
func (m *Metrics) RecordBreakGlass(doctorID string) {
	if m == nil {
		return
	}
	m.breakGlassTotal.WithLabelValues(doctorID).Inc()
}

// ObserveQueryDuration records the duration of one patient data query
func (m *Metrics) ObserveQueryDuration(role string, seconds float64) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(role).Observe(seconds)
}
