package job

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus instruments of a job manager.
type Metrics struct {
	Submitted prometheus.Counter
	Finished  *prometheus.CounterVec
	Running   prometheus.Gauge
	Queued    prometheus.Gauge
	Duration  prometheus.Histogram
}

// NewMetrics creates job metrics registered on reg. A nil reg creates
// unregistered instruments.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted by the job manager.",
		}),
		Finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs that reached a terminal status, by status.",
		}, []string{"status"}),
		Running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Jobs currently executing on a worker.",
		}),
		Queued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_queued",
			Help:      "Jobs waiting for admission.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time from job start to completion delivery.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}
