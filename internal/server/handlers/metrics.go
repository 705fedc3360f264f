package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of the collector counters
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
)

// Metrics are the collector business counters
type Metrics struct {
	Submissions *prometheus.CounterVec
	Logins      *prometheus.CounterVec
}

// NewMetrics registers the collector counters in reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yardsync_collector_submissions_total",
			Help: "Form submissions received by the collector by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yardsync_collector_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}
