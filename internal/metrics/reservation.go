package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics records lifecycle outcomes, lock waits and
// availability reads.  A nil receiver or one built without a registerer
// is a no-op, so tests can pass nil.
type ReservationMetrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	lockWait     prometheus.Histogram
	availability prometheus.Counter
	published    *prometheus.CounterVec
}

// NewReservationMetrics registers the reservation metrics on reg.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_operations_total",
		Help: "Lifecycle operations by operation and outcome code.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_operation_duration_seconds",
		Help:    "Duration of lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reservation_slot_lock_wait_seconds",
		Help:    "Time spent waiting for (date, slot) locks.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
	availability := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_availability_reads_total",
		Help: "Availability resolutions served.",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_events_published_total",
		Help: "Domain events handed to the publisher by result.",
	}, []string{"result"})
	reg.MustRegister(operations, duration, lockWait, availability, published)
	return &ReservationMetrics{
		operations:   operations,
		duration:     duration,
		lockWait:     lockWait,
		availability: availability,
		published:    published,
	}
}

// ObserveOperation counts one finished operation.  outcome is "ok" or an
// error code.
func (m *ReservationMetrics) ObserveOperation(op, outcome string, d time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

func (m *ReservationMetrics) ObserveLockWait(d time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *ReservationMetrics) IncAvailabilityRead() {
	if m == nil || m.availability == nil {
		return
	}
	m.availability.Inc()
}

func (m *ReservationMetrics) IncPublished(ok bool) {
	if m == nil || m.published == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
