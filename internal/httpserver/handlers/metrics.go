package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

// Metrics returns every row of a version, or one row when platform is set.
func Metrics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, versionName, err := versionParams(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		if platform := r.URL.Query().Get("platform"); platform != "" {
			row, err := d.Service.GetPartnerMetrics(r.Context(), entryID, versionName, platform)
			if err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, row)
			return
		}

		all, err := d.Service.GetAggregatedMetrics(r.Context(), entryID, versionName)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}
