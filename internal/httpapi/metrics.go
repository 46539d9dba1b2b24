package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hpsgateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hpsgateway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			// layout parsing of long PDFs runs for minutes
			Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hpsgateway",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	errorResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hpsgateway",
			Subsystem: "http",
			Name:      "error_responses_total",
			Help:      "Error responses by errorType",
		},
		[]string{"error_type"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, errorResponsesTotal)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		inflight := httpInflight.WithLabelValues(inflightLabel(r.URL.Path))
		inflight.Inc()
		next.ServeHTTP(ww, r)
		inflight.Dec()

		// the route pattern is only known once chi has routed the request
		path := routePatternOrPath(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusLabel := strconv.Itoa(status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// inflightLabel maps unrouted paths onto one label value.
func inflightLabel(p string) string {
	switch p {
	case "/health", "/health/ready", "/layout-parsing", "/restructure-pages", "/status", "/metrics":
		return p
	}
	return "other"
}

// countErrorResponse records one error envelope sent to a client.
func countErrorResponse(errorType string) {
	if errorType == "" {
		errorType = "unspecified"
	}
	errorResponsesTotal.WithLabelValues(errorType).Inc()
}
