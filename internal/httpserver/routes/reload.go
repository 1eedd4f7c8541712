package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
)

func init() { Register("reload", ScopeOperator, registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	r.Post("/reload", handlers.Reload(d))
}
