package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/handlers"
)

func init() {
	Register("entries", Public, func(r chi.Router, d deps.Deps) {
		r.Get("/entries/{entryID}", handlers.GetEntry(d))
	})
	Register("lifecycle", Admin, registerLifecycle)
}

func registerLifecycle(r chi.Router, d deps.Deps) {
	r.Put("/entries/{entryID}", handlers.PutEntry(d))
	r.Put("/entries/{entryID}/default-version", handlers.SetDefaultVersion(d))
	r.Put("/entries/{entryID}/doi-selection", handlers.SetDoiSelection(d))
	r.Put("/entries/{entryID}/topic-selection", handlers.SetTopicSelection(d))
	r.Put("/entries/{entryID}/published", handlers.SetPublished(d))
	r.Patch("/entries/{entryID}/versions/{version}", handlers.UpdateVersion(d))
	r.Post("/entries/{entryID}/versions/{version}/freeze", handlers.FreezeVersion(d))
}
