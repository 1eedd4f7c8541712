package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
)

func init() { Register("runs", ScopeOperator, registerRuns) }

func registerRuns(r chi.Router, d deps.Deps) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", handlers.ListRuns(d))
		r.Get("/{id}", handlers.GetRun(d))
	})
}
