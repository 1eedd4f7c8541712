package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/medic/internal/metrics"
)

// Metrics counts every served request by method and status code.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)
			m.ObserveRequest(r.Method, ww.code())
		})
	}
}
