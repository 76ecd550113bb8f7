package inference

import "github.com/prometheus/client_golang/prometheus"

var (
	poolQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "predictd",
			Subsystem: "inference",
			Name:      "queue_length",
			Help:      "Jobs admitted to the inference pool, queued or running",
		},
	)

	poolInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "predictd",
			Subsystem: "inference",
			Name:      "inflight",
			Help:      "Jobs currently executing on the inference pool",
		},
	)

	poolRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "inference",
			Name:      "rejected_total",
			Help:      "Jobs rejected because the queue stayed full past the max wait",
		},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictd",
			Subsystem: "inference",
			Name:      "run_duration_seconds",
			Help:      "Duration of model execution in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "result"},
	)
)

func init() {
	prometheus.MustRegister(poolQueued, poolInflight, poolRejected, runDuration)
}
