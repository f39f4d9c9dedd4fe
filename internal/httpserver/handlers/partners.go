package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
)

type partnersFunc func(ctx context.Context, entryID string) (domain.PartnerSet, error)

func ExecutionPartners(d deps.Deps) http.HandlerFunc {
	return partners(d, d.Service.GetExecutionMetricPartners)
}

func ValidationPartners(d deps.Deps) http.HandlerFunc {
	return partners(d, d.Service.GetValidationMetricPartners)
}

func partners(d deps.Deps, fn partnersFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := entryParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		set, err := fn(r.Context(), entryID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if set == nil {
			set = domain.PartnerSet{}
		}
		writeJSON(w, http.StatusOK, set)
	}
}
