package media

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_http_requests_total",
			Help: "Total HTTP requests handled by the media service",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_http_request_duration_seconds",
			Help:    "HTTP request duration for the media service in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware records request counts and durations per endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizeMetricPath(r.URL.Path)

			wrapped := newLoggingResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizeMetricPath collapses filename segments so label cardinality
// stays bounded.
func normalizeMetricPath(path string) string {
	switch path {
	case "/media", "/media/upload", "/media/upload-multiple", "/healthz", "/metrics":
		return path
	}

	switch {
	case strings.HasPrefix(path, "/media/file/"):
		return "/media/file/{filename}"
	case strings.HasPrefix(path, "/media/info/"):
		return "/media/info/{filename}"
	case strings.HasPrefix(path, "/media/"):
		return "/media/{filename}"
	}

	return path
}
