package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

type defaultVersionRequest struct {
	Version string `json:"version"`
}

type doiSelectionRequest struct {
	Initiator string `json:"initiator"`
}

type topicSelectionRequest struct {
	Selection string `json:"selection"`
}

type publishedRequest struct {
	Published *bool `json:"published"`
}

func SetDefaultVersion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req defaultVersionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if req.Version == "" {
			writeError(w, r, d.Logger, domain.NewValidationError("version", "version is required"))
			return
		}
		e, err := d.Service.SetDefaultVersion(r.Context(), actorOf(r), entryID, req.Version)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func FreezeVersion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, versionName, err := versionParams(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		v, err := d.Service.FreezeVersion(r.Context(), actorOf(r), entryID, versionName)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// UpdateVersion applies a partial update: hidden, frozen, reference, doiSelection.
func UpdateVersion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, versionName, err := versionParams(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var u domain.VersionUpdate
		if err := decodeJSON(w, r, &u); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		v, err := d.Service.UpdateVersion(r.Context(), actorOf(r), entryID, versionName, u)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func SetDoiSelection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req doiSelectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		e, err := d.Service.SetDoiSelection(r.Context(), actorOf(r), entryID, req.Initiator)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func SetTopicSelection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req topicSelectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		e, err := d.Service.SetTopicSelection(r.Context(), actorOf(r), entryID, req.Selection)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func SetPublished(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req publishedRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if req.Published == nil {
			writeError(w, r, d.Logger, domain.NewValidationError("published", "published is required"))
			return
		}
		e, err := d.Service.SetPublished(r.Context(), actorOf(r), entryID, *req.Published)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
