package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/medic/internal/httpserver/mw"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

func init() { Register("webhook", ScopeNetwork, registerWebhook) }

func registerWebhook(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.WebhookBurst,
		RefillPerMin: d.WebhookRefillPerMin,
		IdleTTL:      15 * time.Minute,
		TrustProxy:   d.TrustProxy,
		OnReject: func(ip string) {
			d.Logger.Warn("webhook rate limited", logger.String("ip", ip))
		},
	})
	r.With(limit).Post("/webhook", handlers.Webhook(d))
}
