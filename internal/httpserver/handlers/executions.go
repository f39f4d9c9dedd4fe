package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

// SubmitExecutions accepts a batch of run and validation executions from one platform.
func SubmitExecutions(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, versionName, err := versionParams(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		platform, err := requireQuery(r, "platform")
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		var req domain.ExecutionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		sub, err := d.Service.SubmitExecutionMetrics(r.Context(), actorOf(r), entryID, versionName, platform, req, r.URL.Query().Get("description"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}
