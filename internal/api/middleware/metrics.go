package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Harshitk-cp/veritas/internal/metrics"
)

// Metrics records request counts and latency per route pattern, so ids in
// paths do not create new series.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(route, r.Method, statusClass(rw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
