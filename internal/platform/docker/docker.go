// Package docker implements platform.Platform against the Docker Engine API.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/platform"
	"github.com/MrSnakeDoc/medic/internal/utils"
)

// Options configures the Docker client.
type Options struct {
	Host        string // empty => DOCKER_HOST / default socket
	StopTimeout int    // seconds given to a container to stop during restart
}

// Runtime talks to the Docker daemon. It is safe for concurrent use.
type Runtime struct {
	cli         *client.Client
	logger      logger.Logger
	stopTimeout int
}

var _ platform.Platform = (*Runtime)(nil)

// New builds a client from the environment and negotiates the API version.
// It does not contact the daemon; call Ping for that.
func New(opts Options, log logger.Logger) (*Runtime, error) {
	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	stop := opts.StopTimeout
	if stop <= 0 {
		stop = 10
	}
	return &Runtime{cli: cli, logger: log, stopTimeout: stop}, nil
}

// Close releases the underlying HTTP transport.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

func (r *Runtime) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not reachable: %w", err)
	}
	return nil
}

// List enumerates all containers (running and stopped) whose name starts
// with prefix. The daemon-side name filter is a substring match, so the
// prefix is re-checked here.
func (r *Runtime) List(ctx context.Context, prefix string) ([]platform.Container, error) {
	opts := container.ListOptions{All: true}
	if prefix != "" {
		opts.Filters = filters.NewArgs(filters.Arg("name", prefix))
	}

	summaries, err := r.cli.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	out := make([]platform.Container, 0, len(summaries))
	for _, s := range summaries {
		name := summaryName(s)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		// The list call does not carry health; inspect each match.
		c, err := r.Get(ctx, s.ID)
		if err != nil {
			if errors.Is(err, platform.ErrNotFound) {
				r.logger.Debug("container vanished during listing",
					logger.String("container", name))
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Runtime) Get(ctx context.Context, id string) (platform.Container, error) {
	info, err := r.cli.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return platform.Container{}, platform.ErrNotFound
		}
		return platform.Container{}, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}
	return fromInspect(info), nil
}

func (r *Runtime) Restart(ctx context.Context, id string) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.Running() {
		return platform.ErrNotRunning
	}

	timeout := r.stopTimeout
	if err := r.cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			return platform.ErrNotFound
		}
		return fmt.Errorf("failed to restart container %s: %w", id, err)
	}
	r.logger.Info("container restarted", logger.String("container", id))
	return nil
}

func (r *Runtime) Start(ctx context.Context, id string) error {
	if err := r.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return platform.ErrNotFound
		}
		return fmt.Errorf("failed to start container %s: %w", id, err)
	}
	r.logger.Info("container started", logger.String("container", id))
	return nil
}

// Logs returns the demultiplexed tail of stdout and stderr.
func (r *Runtime) Logs(ctx context.Context, id string, tail int) (string, error) {
	if tail <= 0 {
		tail = 20
	}
	rc, err := r.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", platform.ErrNotFound
		}
		return "", fmt.Errorf("failed to fetch logs for %s: %w", id, err)
	}
	defer utils.MustClose(rc)

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", fmt.Errorf("failed to read logs for %s: %w", id, err)
	}
	return stdout.String() + stderr.String(), nil
}

func summaryName(s types.Container) string {
	if len(s.Names) == 0 {
		return ""
	}
	return strings.TrimPrefix(s.Names[0], "/")
}

func fromInspect(info types.ContainerJSON) platform.Container {
	c := platform.Container{}
	if info.ContainerJSONBase == nil {
		return c
	}
	c.ID = shortID(info.ID)
	c.Name = strings.TrimPrefix(info.Name, "/")
	if st := info.State; st != nil {
		c.State = st.Status
		c.ExitCode = st.ExitCode
		c.OOMKilled = st.OOMKilled
		if st.Health != nil {
			c.Health = st.Health.Status
		}
	}
	return c
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
