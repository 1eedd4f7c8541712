package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
)

func init() { Register("readyz", ScopeNetwork, registerReadyz) }

func registerReadyz(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
}
