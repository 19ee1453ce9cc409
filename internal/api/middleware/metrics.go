package middleware

import (
	"net/http"

	"github.com/Harshitk-cp/dreamlog/internal/metrics"
)

// Metrics returns middleware that counts requests by method and status.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			m.RecordHTTPRequest(r.Method, rw.statusCode)
		})
	}
}
