// Package fleet turns raw platform containers into normalized snapshots.
package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/platform"
)

// Inspector enumerates the instances of a target.
type Inspector struct {
	platform platform.Platform
	logger   logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewInspector(p platform.Platform, log logger.Logger, timeout time.Duration) *Inspector {
	return &Inspector{
		platform: p,
		logger:   log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Inspect captures every instance whose name starts with the target's
// prefix, stopped ones included. No match yields an empty snapshot and a nil
// error.
func (i *Inspector) Inspect(ctx context.Context, target domain.ServiceTarget) (domain.FleetSnapshot, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	containers, err := i.platform.List(ctx, target.InstancePrefix)
	if err != nil {
		return domain.FleetSnapshot{}, fmt.Errorf("failed to inspect fleet %s: %w", target.Name, err)
	}

	instances := make([]domain.InstanceStatus, 0, len(containers))
	seen := make(map[string]bool, len(containers))
	for _, c := range containers {
		if !strings.HasPrefix(c.Name, target.InstancePrefix) || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		instances = append(instances, Normalize(c))
	}
	sort.Slice(instances, func(a, b int) bool { return instances[a].ID < instances[b].ID })

	snap := domain.FleetSnapshot{
		Target:     target.Name,
		Instances:  instances,
		CapturedAt: i.now(),
	}

	i.logger.Debug("fleet inspected",
		logger.String("target", target.Name),
		logger.String("prefix", target.InstancePrefix),
		logger.Int("instances", len(instances)))

	return snap, nil
}

// Normalize maps platform state strings onto the lifecycle/health model.
// Stopped-like states (created, dead) count as exited; transitional states
// (paused, restarting, removing) stay unknown with the raw state kept.
func Normalize(c platform.Container) domain.InstanceStatus {
	s := domain.InstanceStatus{
		ID:          c.Name,
		ContainerID: c.ID,
		RawState:    c.State,
		ExitCode:    c.ExitCode,
		OOMKilled:   c.OOMKilled,
	}
	if s.ID == "" {
		s.ID = c.ID
	}

	switch strings.ToLower(c.State) {
	case "running":
		s.Lifecycle = domain.LifecycleRunning
	case "exited", "created", "dead":
		s.Lifecycle = domain.LifecycleExited
	default:
		s.Lifecycle = domain.LifecycleUnknown
	}

	switch strings.ToLower(c.Health) {
	case "healthy":
		s.Health = domain.HealthHealthy
	case "unhealthy":
		s.Health = domain.HealthUnhealthy
	case "starting":
		s.Health = domain.HealthStarting
	default:
		s.Health = domain.HealthNone
	}
	return s
}
