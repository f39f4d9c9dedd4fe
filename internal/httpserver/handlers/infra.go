package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/index"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Pending *int64 `json:"pending,omitempty"`
	Source  string `json:"source,omitempty"`
	Loaded  string `json:"loaded,omitempty"`
	Error   string `json:"error,omitempty"`

	Cache *index.Stats `json:"cache,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"redis":    checkRedis(r.Context(), d),
			"blob":     {OK: true, Mode: d.Service.BlobBackend()},
			"policy":   policyStatus(d),
			"partners": partnerStatus(d),
		}
		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

// overallStatus is "critical" without Redis, "degraded" when raw
// submissions are not kept, "ok" otherwise.
func overallStatus(components map[string]componentStatus) string {
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "critical"
	}
	if b, ok := components["blob"]; ok && b.Mode == "none" {
		return "degraded"
	}
	return "ok"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Error: "timeout"}
	}
	n, err := d.Store.PendingCount(ctx)
	if err != nil {
		return componentStatus{OK: true, Error: err.Error()}
	}
	return componentStatus{OK: true, Pending: &n}
}

func policyStatus(d deps.Deps) componentStatus {
	st := componentStatus{OK: true, Mode: "static"}
	if d.Policy == nil {
		return st
	}
	if path := d.Policy.Path(); path != "" {
		st.Mode = "file"
		st.Source = path
	}
	if at := d.Policy.LoadedAt(); !at.IsZero() {
		st.Loaded = at.UTC().Format(time.RFC3339)
	}
	return st
}

func partnerStatus(d deps.Deps) componentStatus {
	if d.Partners == nil {
		return componentStatus{OK: false, Error: "cache not initialized"}
	}
	stats := d.Partners.Stats()
	return componentStatus{OK: true, Cache: &stats}
}
