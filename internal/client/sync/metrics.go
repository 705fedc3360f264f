package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of the drain cycle
type Metrics struct {
	Cycles     *prometheus.CounterVec
	Deliveries *prometheus.CounterVec
	Duration   prometheus.Histogram
	InFlight   prometheus.Gauge
}

// NewMetrics registers the sync metrics on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yardsync_sync_cycles_total",
			Help: "The total number of sync triggers by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yardsync_sync_deliveries_total",
			Help: "The total number of submission delivery attempts by outcome",
		}, []string{"outcome"}),

		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yardsync_sync_cycle_duration_seconds",
			Help:    "Duration of drain cycles",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yardsync_sync_in_flight",
			Help: "1 while a drain cycle is running",
		}),
	}
}
