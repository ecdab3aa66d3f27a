// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for project mutations.
const (
	OutcomeOK       = "ok"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitetrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	ProjectMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetrack_project_mutations_total",
			Help: "Project and phase mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetrack_upload_bytes_total",
			Help: "Bytes accepted by the upload endpoint",
		},
		[]string{"type"},
	)
)

// RecordHTTPRequestDuration observes one finished request.
func RecordHTTPRequestDuration(method, route, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordMutation counts one project mutation attempt.
func RecordMutation(op, outcome string) {
	ProjectMutations.WithLabelValues(op, outcome).Inc()
}

// Outcome classifies the result of a mutation for RecordMutation.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized, apperr.KindForbidden:
		return OutcomeDenied
	case apperr.KindValidation:
		return OutcomeInvalid
	case apperr.KindNotFound:
		return OutcomeNotFound
	case apperr.KindConflict:
		return OutcomeConflict
	}
	return OutcomeError
}

// RecordUpload counts bytes stored for an upload kind.
func RecordUpload(kind string, size int64) {
	UploadBytes.WithLabelValues(kind).Add(float64(size))
}

// Middleware times every request. The route label is the chi pattern, so
// ids in paths do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequestDuration(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
