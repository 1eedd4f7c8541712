// Package dispatch queues remediation runs and executes them on a fixed
// worker pool, at most one per target at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/metrics"
	"github.com/MrSnakeDoc/medic/internal/store"
)

var (
	// ErrAlreadyActive is returned with the existing run when the target
	// already has a queued or running invocation.
	ErrAlreadyActive = errors.New("target already has an active run")
	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("run queue is full")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("dispatcher stopped")
)

// Runner executes one remediation invocation.
type Runner interface {
	Run(ctx context.Context, target domain.ServiceTarget, problem string) domain.LoopResult
}

// Options tune a Dispatcher.
type Options struct {
	Workers    int           // concurrent runs
	QueueSize  int           // pending runs beyond the workers
	RunTimeout time.Duration // bound for one run, zero means none
}

type job struct {
	rec    domain.RunRecord
	target domain.ServiceTarget
}

// Dispatcher owns the run queue. Create with New, then Start.
type Dispatcher struct {
	runner  Runner
	history store.History
	metrics *metrics.Metrics
	logger  logger.Logger
	opts    Options

	mu      sync.Mutex
	active  map[string]string // target -> run ID
	stopped bool
	queue   chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	newID func() string
	now   func() time.Time
}

// New builds a dispatcher. m may be nil.
func New(runner Runner, history store.History, m *metrics.Metrics, log logger.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	return &Dispatcher{
		runner:  runner,
		history: history,
		metrics: m,
		logger:  log,
		opts:    opts,
		active:  make(map[string]string),
		queue:   make(chan job, opts.Workers+opts.QueueSize),
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Start launches the workers. Runs inherit ctx; cancelling it aborts them
// between steps.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.logger.Info("dispatcher started",
		logger.Int("workers", d.opts.Workers),
		logger.Int("queue_size", cap(d.queue)))

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Submit enqueues a run for target. On ErrAlreadyActive the returned record
// carries the ID of the run already in progress.
func (d *Dispatcher) Submit(ctx context.Context, target domain.ServiceTarget, problem, source string) (domain.RunRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return domain.RunRecord{}, ErrStopped
	}
	if id, ok := d.active[target.Name]; ok {
		return domain.RunRecord{ID: id, Target: target.Name}, ErrAlreadyActive
	}

	rec := domain.RunRecord{
		ID:          d.newID(),
		Target:      target.Name,
		Problem:     problem,
		Source:      source,
		Status:      domain.RunQueued,
		SubmittedAt: d.now(),
	}

	// Only Submit sends, under mu, so a free slot cannot disappear before
	// the send below.
	if len(d.queue) == cap(d.queue) {
		d.logger.Warn("run rejected, queue full",
			logger.String("target", target.Name),
			logger.String("source", source))
		return domain.RunRecord{}, ErrQueueFull
	}
	d.active[target.Name] = rec.ID
	d.save(ctx, rec)
	d.queue <- job{rec: rec, target: target}

	d.logger.Info("run queued",
		logger.String("run_id", rec.ID),
		logger.String("target", target.Name),
		logger.String("source", source))
	return rec, nil
}

// Active returns the run ID per target for queued or running invocations.
func (d *Dispatcher) Active() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]string, len(d.active))
	for k, v := range d.active {
		out[k] = v
	}
	return out
}

// Stop refuses new runs, cancels in-flight ones and waits for the workers
// until ctx expires. Queued runs are drained and recorded as aborted.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher stop: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for j := range d.queue {
		d.execute(j)
	}
	d.logger.Debug("dispatcher worker exiting", logger.Int("worker", n))
}

func (d *Dispatcher) execute(j job) {
	rec := j.rec
	log := d.logger.With(logger.String("run_id", rec.ID), logger.String("target", rec.Target))

	defer func() {
		d.mu.Lock()
		if d.active[rec.Target] == rec.ID {
			delete(d.active, rec.Target)
		}
		d.mu.Unlock()
	}()

	rec.Status = domain.RunRunning
	rec.StartedAt = d.now()
	d.save(d.ctx, rec)

	if d.metrics != nil {
		d.metrics.RunsActive.Inc()
		defer d.metrics.RunsActive.Dec()
	}

	ctx := d.ctx
	if d.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.RunTimeout)
		defer cancel()
	}

	log.Debug("run started")
	res := d.runner.Run(ctx, j.target, rec.Problem)

	rec.Status = domain.RunDone
	rec.FinishedAt = d.now()
	rec.Result = &res
	// The run context may be cancelled by now; the final record is still
	// written.
	d.save(context.WithoutCancel(d.ctx), rec)

	if d.metrics != nil {
		d.metrics.ObserveRun(res)
	}
	log.Info("run finished",
		logger.String("verdict", string(res.Verdict)),
		logger.Duration("elapsed", rec.FinishedAt.Sub(rec.StartedAt)))
}

func (d *Dispatcher) save(ctx context.Context, rec domain.RunRecord) {
	if d.history == nil {
		return
	}
	if err := d.history.Save(ctx, rec); err != nil {
		d.logger.Warn("failed to record run",
			logger.String("run_id", rec.ID),
			logger.String("status", string(rec.Status)),
			logger.Error(err))
	}
}
