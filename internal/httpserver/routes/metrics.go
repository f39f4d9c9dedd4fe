package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/mw"
)

func init() { Register("metrics", Public, registerMetrics) }

func registerMetrics(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.SubmitBurst,
		RefillPerIPPerMin: d.SubmitRefillPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.Get("/entries/{entryID}/partners/executions", handlers.ExecutionPartners(d))
	r.Get("/entries/{entryID}/partners/validations", handlers.ValidationPartners(d))
	r.With(limit).Post("/entries/{entryID}/versions/{version}/executions", handlers.SubmitExecutions(d))
	r.Get("/entries/{entryID}/versions/{version}/metrics", handlers.Metrics(d))
	r.Get("/entries/{entryID}/versions/{version}/files", handlers.Files(d))
}
