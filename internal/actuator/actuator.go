// Package actuator applies remediation actions to single instances.
package actuator

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/platform"
)

// errPaused is reported for frozen instances; neither start nor restart
// resumes them.
var errPaused = errors.New("instance is paused, unpause it to recover")

// Actuator resolves every call to exactly one of Succeeded, NotFound or
// Failed. It never retries.
type Actuator struct {
	platform platform.Platform
	logger   logger.Logger
	timeout  time.Duration
}

func New(p platform.Platform, log logger.Logger, timeout time.Duration) *Actuator {
	return &Actuator{platform: p, logger: log, timeout: timeout}
}

// Act applies one action. The platform call is detached from ctx
// cancellation and bounded by the actuator timeout only, so a shutdown never
// interrupts an operation half way.
func (a *Actuator) Act(ctx context.Context, action domain.RemediationAction) domain.ActionOutcome {
	opCtx := context.WithoutCancel(ctx)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, a.timeout)
		defer cancel()
	}

	var out domain.ActionOutcome
	switch action.Kind {
	case domain.ActionRestart:
		out = a.restart(opCtx, action.InstanceID)
	case domain.ActionStart:
		out = a.start(opCtx, action.InstanceID)
	default:
		out = failed(domain.ActionKind(""), errors.New("unknown action kind "+string(action.Kind)))
	}

	fields := []logger.Field{
		logger.String("instance", action.InstanceID),
		logger.String("planned", string(action.Kind)),
		logger.String("applied", string(out.Applied)),
		logger.String("outcome", string(out.Kind)),
	}
	switch out.Kind {
	case domain.OutcomeSucceeded:
		a.logger.Info("remediation action applied", fields...)
	case domain.OutcomeNotFound:
		a.logger.Warn("remediation target not found", fields...)
	default:
		a.logger.Error("remediation action failed", append(fields, logger.String("cause", out.Cause))...)
	}
	return out
}

// restart restarts a running instance and falls back to start when the
// instance exists but is stopped.
func (a *Actuator) restart(ctx context.Context, id string) domain.ActionOutcome {
	c, err := a.platform.Get(ctx, id)
	switch {
	case errors.Is(err, platform.ErrNotFound):
		return notFound(domain.ActionRestart)
	case err != nil:
		return failed(domain.ActionRestart, err)
	}

	if c.State == "paused" {
		return failed(domain.ActionRestart, errPaused)
	}
	if !c.Running() {
		a.logger.Info("instance not running, starting instead of restarting",
			logger.String("instance", id),
			logger.String("state", c.State))
		return a.start(ctx, id)
	}

	err = a.platform.Restart(ctx, id)
	switch {
	case err == nil:
		return domain.ActionOutcome{Kind: domain.OutcomeSucceeded, Applied: domain.ActionRestart}
	case errors.Is(err, platform.ErrNotRunning):
		// Stopped between Get and Restart.
		return a.start(ctx, id)
	case errors.Is(err, platform.ErrNotFound):
		return notFound(domain.ActionRestart)
	default:
		return failed(domain.ActionRestart, err)
	}
}

func (a *Actuator) start(ctx context.Context, id string) domain.ActionOutcome {
	err := a.platform.Start(ctx, id)
	switch {
	case err == nil:
		return domain.ActionOutcome{Kind: domain.OutcomeSucceeded, Applied: domain.ActionStart}
	case errors.Is(err, platform.ErrNotFound):
		return notFound(domain.ActionStart)
	default:
		return failed(domain.ActionStart, err)
	}
}

func notFound(applied domain.ActionKind) domain.ActionOutcome {
	return domain.ActionOutcome{
		Kind:    domain.OutcomeNotFound,
		Applied: applied,
		Cause:   domain.ErrInstanceNotFound.Error(),
	}
}

func failed(applied domain.ActionKind, err error) domain.ActionOutcome {
	return domain.ActionOutcome{Kind: domain.OutcomeFailed, Applied: applied, Cause: err.Error()}
}
