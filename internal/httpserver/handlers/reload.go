package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

type reloadResponse struct {
	Policy    string `json:"policy"`
	Aggregate string `json:"aggregate"`
}

// trigger does a non-blocking send; a full channel means a run is already queued.
func trigger(ch chan struct{}) string {
	if ch == nil {
		return "disabled"
	}
	select {
	case ch <- struct{}{}:
		return "triggered"
	default:
		return "in_progress"
	}
}

// Reload queues a policy reload and an aggregation sweep.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := reloadResponse{
			Policy:    trigger(d.PolicyReloadTrigger),
			Aggregate: trigger(d.AggregateTrigger),
		}
		d.Logger.Info("manual reload requested",
			logger.String("policy", resp.Policy),
			logger.String("aggregate", resp.Aggregate),
			logger.String("remote_ip", r.RemoteAddr))

		status := http.StatusAccepted
		if resp.Policy != "triggered" && resp.Aggregate != "triggered" {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, resp)
	}
}
