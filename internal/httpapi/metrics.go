package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"pland/pkg/types"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pland",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pland",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pland",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	estimateVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pland",
			Subsystem: "planner",
			Name:      "estimates_total",
			Help:      "Estimate requests by verdict",
		},
		[]string{"verdict"},
	)

	autofitOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pland",
			Subsystem: "planner",
			Name:      "autofits_total",
			Help:      "Auto-fit searches by outcome",
		},
		[]string{"outcome"},
	)

	autofitStepsApplied = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pland",
			Subsystem: "planner",
			Name:      "autofit_steps_applied",
			Help:      "Mitigation steps applied per auto-fit search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight,
		estimateVerdictsTotal, autofitOutcomesTotal, autofitStepsApplied)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		method := r.Method
		httpInflight.WithLabelValues(path).Inc()
		defer httpInflight.WithLabelValues(path).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := strconv.Itoa(sr.status)
		dur := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(path, method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, method, statusLabel).Observe(dur)
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

// ObserveEstimate records the verdict of one estimate request.
func ObserveEstimate(resp types.EstimateResponse) {
	estimateVerdictsTotal.WithLabelValues(estimateVerdict(resp)).Inc()
}

// ObserveAutoFit records the outcome of one auto-fit search.
func ObserveAutoFit(resp types.AutoFitResponse) {
	outcome := "fit"
	switch {
	case !resp.Estimate.Verified:
		outcome = "unverified"
	case !resp.Estimate.FitsAll:
		outcome = "unfittable"
	}
	autofitOutcomesTotal.WithLabelValues(outcome).Inc()
	autofitStepsApplied.Observe(float64(len(resp.Notes)))
}

func estimateVerdict(resp types.EstimateResponse) string {
	switch {
	case !resp.Verified:
		return "unverified"
	case resp.FitsAll:
		return "fit"
	default:
		return "no_fit"
	}
}
