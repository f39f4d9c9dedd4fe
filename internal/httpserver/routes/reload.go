package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/handlers"
)

func init() {
	Register("reload", Admin, func(r chi.Router, d deps.Deps) {
		r.Post("/reload", handlers.Reload(d))
	})
}
