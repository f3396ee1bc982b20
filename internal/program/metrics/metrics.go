package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the program module.
// Tracks program/membership creation counts and critical path durations.
type Metrics struct {
	ProgramsCreated   prometheus.Counter
	ProgramsJoined    prometheus.Counter
	TargetingDuration prometheus.Histogram
	JoinDuration      prometheus.Histogram
	PublishFailures   prometheus.Counter
}

// New creates a new Metrics instance with all program module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProgramsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_programs_created_total",
			Help: "Total number of programs created",
		}),
		ProgramsJoined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_programs_joined_total",
			Help: "Total number of successful program joins",
		}),
		TargetingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_targeting_query_duration_seconds",
			Help:    "Duration of targeted-program queries (listing critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		JoinDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_join_duration_seconds",
			Help:    "Duration of Join operations end to end",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_membership_publish_failures_total",
			Help: "Total number of membership events that failed to publish",
		}),
	}
}

// IncrementProgramsCreated records a successful program creation.
func (m *Metrics) IncrementProgramsCreated() {
	m.ProgramsCreated.Inc()
}

// IncrementProgramsJoined records a successful join.
func (m *Metrics) IncrementProgramsJoined() {
	m.ProgramsJoined.Inc()
}

// IncrementPublishFailures records a membership event that could not be published.
func (m *Metrics) IncrementPublishFailures() {
	m.PublishFailures.Inc()
}

// ObserveTargeting records the duration of a targeted-program query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTargeting(start time.Time) {
	m.TargetingDuration.Observe(time.Since(start).Seconds())
}

// ObserveJoin records the duration of a Join operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveJoin(start time.Time) {
	m.JoinDuration.Observe(time.Since(start).Seconds())
}
