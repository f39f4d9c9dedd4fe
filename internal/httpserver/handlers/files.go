package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

// Files lists the raw submissions of a version. With ?key= it streams one
// submission body instead.
func Files(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, versionName, err := versionParams(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		if key := r.URL.Query().Get("key"); key != "" {
			obj, err := d.Service.GetMetricsFile(r.Context(), entryID, versionName, key)
			if err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			contentType := obj.ContentType
			if contentType == "" {
				contentType = blob.ContentTypeJSON
			}
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Content-Length", strconv.Itoa(len(obj.Body)))
			if obj.Owner != "" {
				w.Header().Set("X-Metrics-Owner", obj.Owner)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(obj.Body)
			return
		}

		files, err := d.Service.ListMetricsFiles(r.Context(), entryID, versionName)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, files)
	}
}
