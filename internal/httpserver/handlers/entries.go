package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

// GetEntry syncs the entry with its default version and returns the projection.
func GetEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		view, err := d.Service.Sync(r.Context(), entryID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// PutEntry registers an entry. An existing entry is returned unchanged with 200.
func PutEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var in domain.Entry
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if in.ID == "" {
			in.ID = entryID
		}
		if in.ID != entryID {
			writeError(w, r, d.Logger, domain.NewValidationError("id", "body id %q does not match path %q", in.ID, entryID))
			return
		}

		e, created, err := d.Service.RegisterEntry(r.Context(), actorOf(r), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, e)
	}
}
