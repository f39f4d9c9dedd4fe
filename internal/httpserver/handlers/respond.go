package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

// UserHeader names the acting user of a mutation.
const UserHeader = "X-Dockstore-User"

// maxBodyBytes bounds request bodies; submissions are the largest.
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, blob.ErrInvalidInput):
		return http.StatusBadRequest, domain.CodeInvalidInput
	case errors.Is(err, blob.ErrObjectNotFound):
		return http.StatusNotFound, domain.CodeNotFound
	}
	code := domain.Code(err)
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest, code
	case domain.CodeNotFound:
		return http.StatusNotFound, code
	case domain.CodeConflict:
		return http.StatusConflict, code
	default:
		return http.StatusInternalServerError, code
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Error(err))
		if code == domain.CodeInternal {
			msg = http.StatusText(status)
		}
	} else {
		log.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is empty")
		}
		return domain.NewValidationError("body", "invalid JSON: %v", err)
	}
	return nil
}

// pathParam unescapes a route parameter. Entry ids and version names may
// contain '/' and '#', so clients send them path-escaped.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil || v == "" {
		return "", domain.NewValidationError(name, "invalid path parameter %q", raw)
	}
	return v, nil
}

func entryParam(r *http.Request) (string, error) {
	return pathParam(r, "entryID")
}

func versionParams(r *http.Request) (entryID, versionName string, err error) {
	if entryID, err = pathParam(r, "entryID"); err != nil {
		return "", "", err
	}
	if versionName, err = pathParam(r, "version"); err != nil {
		return "", "", err
	}
	return entryID, versionName, nil
}

func actorOf(r *http.Request) domain.Actor {
	return domain.NewActor(r.Header.Get(UserHeader))
}

func requireQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", domain.NewValidationError(name, "query parameter %s is required", name)
	}
	return v, nil
}
