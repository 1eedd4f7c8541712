package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
)

func init() { Register("status", ScopeNetwork, registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.Get("/status", handlers.Status(d))
}
