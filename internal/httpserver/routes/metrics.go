package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
)

func init() { Register("metrics", ScopeNetwork, registerMetrics) }

func registerMetrics(r chi.Router, d deps.Deps) {
	if d.Metrics == nil {
		return
	}
	r.Handle("/metrics", d.Metrics.Handler())
}
