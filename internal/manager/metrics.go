package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	admissionInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hpsgateway",
			Subsystem: "admission",
			Name:      "inflight",
			Help:      "Backend calls currently holding a concurrency slot",
		},
		[]string{"worker"},
	)

	admissionWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hpsgateway",
			Subsystem: "admission",
			Name:      "waiting",
			Help:      "Requests waiting for a concurrency slot",
		},
		[]string{"worker"},
	)

	admissionWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hpsgateway",
			Subsystem: "admission",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a concurrency slot",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"worker"},
	)

	admissionTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hpsgateway",
			Subsystem: "admission",
			Name:      "timeouts_total",
			Help:      "Backend calls abandoned at the inference deadline",
		},
		[]string{"worker"},
	)

	backendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hpsgateway",
			Subsystem: "backend",
			Name:      "errors_total",
			Help:      "Backend call failures by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(admissionInflight, admissionWaiting, admissionWaitSeconds, admissionTimeoutsTotal, backendErrorsTotal)
}
