package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/index"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/metrics"
	"github.com/MrSnakeDoc/medic/internal/store"
)

// Dispatcher is the part of dispatch.Dispatcher the handlers use.
type Dispatcher interface {
	Submit(ctx context.Context, target domain.ServiceTarget, problem, source string) (domain.RunRecord, error)
	Active() map[string]string
}

// Pinger reports whether the container platform answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger              logger.Logger
	StartTime           time.Time
	Version             string
	Commit              string
	BuildDate           string
	GoVersion           string
	TimeNow             func() time.Time   // for testing, defaults to time.Now
	AllowedHosts        []string           // Host headers allowed to access the server
	AllowedCIDRS        []string           // IPs allowed to access the API
	TrustProxy          bool               // true if running behind a trusted reverse proxy
	WebhookBurst        int                // webhook token bucket size
	WebhookRefillPerMin int                // webhook tokens added per minute
	Targets             *index.TargetIndex // Current service targets
	Dispatcher          Dispatcher         // Run queue
	History             store.History      // Run history
	RedisClient         *redis.Client      // nil when history is in memory
	Platform            Pinger             // Container platform
	Metrics             *metrics.Metrics   // nil disables /metrics
	ReloadTrigger       chan struct{}      // Channel to trigger manual targets reload
}
