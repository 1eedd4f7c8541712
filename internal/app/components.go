package app

import (
	"fmt"

	"github.com/MrSnakeDoc/medic/internal/actuator"
	"github.com/MrSnakeDoc/medic/internal/advisor"
	"github.com/MrSnakeDoc/medic/internal/config"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/fleet"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/platform/docker"
	"github.com/MrSnakeDoc/medic/internal/probe"
	"github.com/MrSnakeDoc/medic/internal/remediation"
	"github.com/MrSnakeDoc/medic/internal/scheduler"
	"github.com/MrSnakeDoc/medic/internal/sources/targets"
)

// Components are the remediation pieces shared by the server and the
// one-shot commands.
type Components struct {
	Logger    logger.Logger
	Runtime   *docker.Runtime
	Prober    *probe.HTTPProber
	Inspector *fleet.Inspector
	Loop      *remediation.Loop
}

// NewComponents connects to the container platform and assembles the loop.
func NewComponents(cfg *config.Config, log logger.Logger) (*Components, error) {
	rt, err := docker.New(docker.Options{Host: cfg.DockerHost}, log)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	prober := probe.NewHTTPProber(cfg.ProbeTimeout, log)
	inspector := fleet.NewInspector(rt, log, cfg.ActionTimeout)

	loop := remediation.New(remediation.Deps{
		Prober:    prober,
		Inspector: inspector,
		Actuator:  actuator.New(rt, log, cfg.ActionTimeout),
		Logs:      rt,
		Advisor:   advisor.New(),
		Logger:    log,
	}, remediation.Options{
		MaxCycles:       cfg.MaxCycles,
		ParallelActions: cfg.ParallelActions,
		LogTail:         cfg.LogTail,
		LogTimeout:      cfg.ActionTimeout,
	})

	return &Components{
		Logger:    log,
		Runtime:   rt,
		Prober:    prober,
		Inspector: inspector,
		Loop:      loop,
	}, nil
}

// Close releases the platform client.
func (c *Components) Close() {
	if err := c.Runtime.Close(); err != nil {
		c.Logger.Warn("failed to close docker client", logger.Error(err))
	}
}

// TargetLoader returns the file loader when a targets file is configured,
// otherwise a loader for the single inline target.
func TargetLoader(cfg *config.Config) scheduler.TargetLoader {
	if cfg.TargetsFile != "" {
		return targets.NewLoader(cfg.TargetsFile)
	}
	return scheduler.LoaderFunc(func() ([]domain.ServiceTarget, error) {
		inline := cfg.InlineTarget()
		if _, err := targets.MapTarget(targets.Spec{
			Name:           inline.Name,
			HealthURL:      inline.HealthURL,
			InstancePrefix: inline.InstancePrefix,
		}); err != nil {
			return nil, fmt.Errorf("inline target: %w", err)
		}
		return []domain.ServiceTarget{inline}, nil
	})
}

// DefaultTargetName is the target used for alerts that name none.
func DefaultTargetName(cfg *config.Config) string {
	if cfg.DefaultTarget != "" {
		return cfg.DefaultTarget
	}
	if cfg.TargetsFile == "" {
		return cfg.TargetName
	}
	return ""
}
