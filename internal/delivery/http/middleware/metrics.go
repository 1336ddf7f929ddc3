package middleware

import (
	"net/http"
	"strconv"
	"time"

	"eventlottery/internal/metrics"
)

// MetricsMiddleware records request counts and latencies per route pattern.
// Patterns are resolved against the mux before serving, so label cardinality
// stays bounded regardless of path parameters.
func MetricsMiddleware(m *metrics.Metrics, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(wrapped, r)

		m.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
