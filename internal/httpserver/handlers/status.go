package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
)

const statusPingTimeout = time.Second

type componentStatus struct {
	OK            bool              `json:"ok"`
	TargetsLoaded *int              `json:"targets_loaded,omitempty"`
	LastReload    string            `json:"last_reload,omitempty"`
	Mode          string            `json:"mode,omitempty"`
	Impact        string            `json:"impact,omitempty"`
	Error         string            `json:"error,omitempty"`
	ActiveRuns    map[string]string `json:"active_runs,omitempty"`
}

type statusResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Status reports each component medic depends on.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := d.Targets.Count()
		lastReload := d.Targets.LastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"targets": {
				OK:            count > 0,
				TargetsLoaded: &count,
				LastReload:    lastReloadStr,
			},
			"platform":   checkPlatform(r.Context(), d),
			"history":    checkHistory(r.Context(), d),
			"dispatcher": {OK: true, ActiveRuns: d.Dispatcher.Active()},
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// Nothing to supervise or nothing to act with
	if !components["targets"].OK || !components["platform"].OK {
		return "critical"
	}
	// History down = degraded (runs still execute)
	if !components["history"].OK {
		return "degraded"
	}
	return "operational"
}

func checkPlatform(ctx context.Context, d deps.Deps) componentStatus {
	if d.Platform == nil {
		return componentStatus{OK: false, Impact: "remediation-disabled", Error: "platform not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, statusPingTimeout)
	defer cancel()

	if err := d.Platform.Ping(ctx); err != nil {
		return componentStatus{OK: false, Impact: "remediation-disabled", Error: err.Error()}
	}
	return componentStatus{OK: true}
}

func checkHistory(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "memory", Impact: "history-lost-on-restart"}
	}

	ctx, cancel := context.WithTimeout(ctx, statusPingTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "redis", Impact: "history-unavailable", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "redis"}
}
