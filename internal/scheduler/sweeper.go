package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/medic/internal/dispatch"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/index"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/probe"
)

// SourceSweep labels runs submitted by the sweeper.
const SourceSweep = "sweep"

// sweepConcurrency bounds parallel probes within one sweep.
const sweepConcurrency = 4

// Submitter enqueues remediation runs.
type Submitter interface {
	Submit(ctx context.Context, target domain.ServiceTarget, problem, source string) (domain.RunRecord, error)
}

// Sweeper periodically probes every target and submits a run for each one
// that is not healthy.
type Sweeper struct {
	prober    probe.Prober
	index     *index.TargetIndex
	submitter Submitter
	logger    logger.Logger
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewSweeper creates a new sweeper. A zero interval disables it.
func NewSweeper(
	prober probe.Prober,
	idx *index.TargetIndex,
	submitter Submitter,
	log logger.Logger,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		prober:    prober,
		index:     idx,
		submitter: submitter,
		logger:    log,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("sweeper started", logger.Duration("interval", s.interval))
	return nil
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep probes every target once and returns how many runs were submitted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	var (
		submitted atomic.Int32
		g         errgroup.Group
	)
	g.SetLimit(sweepConcurrency)

	for _, t := range s.index.All() {
		g.Go(func() error {
			v := s.prober.Probe(ctx, t)
			if v.IsHealthy() {
				return nil
			}

			rec, err := s.submitter.Submit(ctx, t, "sweep: "+v.String(), SourceSweep)
			switch {
			case err == nil:
				submitted.Add(1)
				s.logger.Info("sweep found failing target",
					logger.String("target", t.Name),
					logger.String("probe", v.String()),
					logger.String("run_id", rec.ID))
			case errors.Is(err, dispatch.ErrAlreadyActive):
				s.logger.Debug("sweep skipped target with active run",
					logger.String("target", t.Name),
					logger.String("run_id", rec.ID))
			default:
				s.logger.Warn("sweep could not submit run",
					logger.String("target", t.Name),
					logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(submitted.Load())
	s.logger.Debug("sweep completed", logger.Int("submitted", n))
	return n
}
