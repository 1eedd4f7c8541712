package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
)

func init() { Register("healthz", ScopeNetwork, registerHealthz) }

func registerHealthz(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}
