// Package platform defines the container capability the remediation core
// depends on. Implementations live in sub-packages.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no instance, running or stopped, has the
// requested name or ID.
var ErrNotFound = errors.New("platform: instance not found")

// ErrNotRunning is returned by Restart when the instance exists but is
// stopped.
var ErrNotRunning = errors.New("platform: instance not running")

// Container is the raw platform view of one instance. State and Health are
// platform strings; normalization is the inspector's job.
type Container struct {
	ID        string
	Name      string
	State     string // running, exited, created, paused, restarting, dead
	Health    string // healthy, unhealthy, starting, or empty
	ExitCode  int
	OOMKilled bool
}

// Running reports whether the platform considers the container live.
func (c Container) Running() bool {
	return c.State == "running"
}

// Platform is the set of operations the remediation loop needs.
type Platform interface {
	// List returns every container whose name starts with prefix,
	// including stopped ones.
	List(ctx context.Context, prefix string) ([]Container, error)

	// Get resolves a single container by name or ID, including stopped ones.
	Get(ctx context.Context, id string) (Container, error)

	// Restart restarts a running container. ErrNotRunning if it is stopped.
	Restart(ctx context.Context, id string) error

	// Start starts a stopped container.
	Start(ctx context.Context, id string) error

	// Logs returns the last tail lines of combined stdout/stderr.
	Logs(ctx context.Context, id string, tail int) (string, error)

	// Ping checks the platform API is reachable.
	Ping(ctx context.Context) error
}
