package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/medic/internal/dispatch"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

// SourceWebhook labels runs submitted by alerts.
const SourceWebhook = "webhook"

const maxWebhookBody = 1 << 20

// alertPayload is the subset of the Alertmanager webhook body medic reads.
type alertPayload struct {
	Status            string            `json:"status"`
	Alerts            []alert           `json:"alerts"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
}

type alert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// Per-alert outcomes reported back to the sender.
const (
	entryQueued        = "queued"
	entryAlreadyActive = "already_active"
	entryUnknownTarget = "unknown_target"
	entryQueueFull     = "queue_full"
	entryStopped       = "stopped"
	entryResolved      = "resolved"
	entryError         = "error"
)

type webhookEntry struct {
	ID     string `json:"id,omitempty"`
	Target string `json:"target,omitempty"`
	Status string `json:"status"`
}

type webhookResponse struct {
	Runs []webhookEntry `json:"runs"`
}

// targetLabels are checked in order to map an alert to a target.
var targetLabels = []string{"target", "service", "job"}

// Webhook accepts an alert notification and queues one remediation run per
// affected target. It answers before any remediation happens.
func Webhook(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload alertPayload
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err := dec.Decode(&payload); err != nil {
			d.Logger.Warn("invalid webhook payload", logger.Error(err))
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if len(payload.Alerts) == 0 {
			writeError(w, http.StatusBadRequest, "payload contains no alerts")
			return
		}

		d.Logger.Info("🚨 webhook received",
			logger.String("status", payload.Status),
			logger.Int("alerts", len(payload.Alerts)),
			logger.String("remote_ip", r.RemoteAddr))

		resp := webhookResponse{Runs: make([]webhookEntry, 0, len(payload.Alerts))}
		seen := make(map[string]bool, len(payload.Alerts))
		resolved := make(map[string]bool)

		for _, a := range payload.Alerts {
			name, target, ok := resolveTarget(d, payload, a)
			if !ok {
				d.Logger.Warn("alert for unknown target", logger.String("target", name))
				resp.Runs = append(resp.Runs, webhookEntry{Target: name, Status: entryUnknownTarget})
				continue
			}
			if strings.EqualFold(a.Status, "resolved") {
				if !resolved[target.Name] {
					resolved[target.Name] = true
					resp.Runs = append(resp.Runs, webhookEntry{Target: target.Name, Status: entryResolved})
				}
				continue
			}
			// Only firing alerts claim the target.
			if seen[target.Name] {
				continue
			}
			seen[target.Name] = true

			rec, err := d.Dispatcher.Submit(r.Context(), target, problemOf(payload, a), SourceWebhook)
			entry := webhookEntry{ID: rec.ID, Target: target.Name}
			switch {
			case err == nil:
				entry.Status = entryQueued
			case errors.Is(err, dispatch.ErrAlreadyActive):
				entry.Status = entryAlreadyActive
			case errors.Is(err, dispatch.ErrQueueFull):
				entry.Status = entryQueueFull
			case errors.Is(err, dispatch.ErrStopped):
				entry.Status = entryStopped
			default:
				d.Logger.Error("failed to submit run", logger.String("target", target.Name), logger.Error(err))
				entry.Status = entryError
			}
			resp.Runs = append(resp.Runs, entry)
		}

		writeJSON(w, http.StatusAccepted, resp)
	}
}

// resolveTarget maps an alert to a known target using its labels, then the
// common labels, then the default target. The returned name is the label
// value that was looked up, for reporting.
func resolveTarget(d deps.Deps, p alertPayload, a alert) (string, domain.ServiceTarget, bool) {
	for _, labels := range []map[string]string{a.Labels, p.CommonLabels} {
		for _, key := range targetLabels {
			v := strings.TrimSpace(labels[key])
			if v == "" {
				continue
			}
			if t, ok := d.Targets.Get(v); ok {
				return v, t, true
			}
			// An explicit target label must match.
			if key == "target" {
				return v, domain.ServiceTarget{}, false
			}
		}
	}
	t, ok := d.Targets.Default()
	return t.Name, t, ok
}

// problemOf picks the most descriptive text the alert carries.
func problemOf(p alertPayload, a alert) string {
	for _, m := range []map[string]string{a.Annotations, p.CommonAnnotations} {
		for _, key := range []string{"description", "summary"} {
			if v := strings.TrimSpace(m[key]); v != "" {
				return v
			}
		}
	}
	if v := a.Labels["alertname"]; v != "" {
		return "alert " + v + " firing"
	}
	return "alert received"
}
