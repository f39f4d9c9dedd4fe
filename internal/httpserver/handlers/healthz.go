package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/version"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	version.Info
}

func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(start).Seconds(),
			Info:          d.Build,
		})
	}
}
