package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/handlers"
)

func init() {
	Register("health", Public, func(r chi.Router, d deps.Deps) {
		r.Get("/healthz", handlers.Healthz(d))
	})
	Register("status", Internal, func(r chi.Router, d deps.Deps) {
		r.Get("/readyz", handlers.Readyz(d))
		r.Get("/infra", handlers.Infra(d))
	})
}
