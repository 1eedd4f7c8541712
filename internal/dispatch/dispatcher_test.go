package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/metrics"
	"github.com/MrSnakeDoc/medic/internal/store/memory"
)

// gatedRunner blocks each run until release is closed or ctx ends.
type gatedRunner struct {
	release chan struct{}
	started chan string

	mu    sync.Mutex
	calls []string
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{release: make(chan struct{}), started: make(chan string, 16)}
}

func (g *gatedRunner) Run(ctx context.Context, target domain.ServiceTarget, problem string) domain.LoopResult {
	g.mu.Lock()
	g.calls = append(g.calls, target.Name)
	g.mu.Unlock()
	g.started <- target.Name

	res := domain.LoopResult{Target: target.Name, Problem: problem, StartedAt: time.Now()}
	select {
	case <-g.release:
		res.Verdict = domain.LoopRecovered
	case <-ctx.Done():
		res.Verdict = domain.LoopAborted
	}
	res.FinishedAt = time.Now()
	return res
}

func webapp(name string) domain.ServiceTarget {
	return domain.ServiceTarget{Name: name, HealthURL: "http://" + name + "/", InstancePrefix: name + "-"}
}

func newDispatcher(r Runner, opts Options) (*Dispatcher, *memory.History, *metrics.Metrics) {
	h := memory.NewHistory(50)
	m := metrics.New()
	return New(r, h, m, logger.NewNop(), opts), h, m
}

func TestSubmit_RunsAndRecords(t *testing.T) {
	r := newGatedRunner()
	d, h, m := newDispatcher(r, Options{Workers: 1, QueueSize: 4})
	d.Start(context.Background())
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	rec, err := d.Submit(context.Background(), webapp("webapp"), "HTTP 502", "webhook")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.RunQueued, rec.Status)

	<-r.started
	assert.Eventually(t, func() bool {
		got, err := h.Get(context.Background(), rec.ID)
		return err == nil && got.Status == domain.RunRunning
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsActive))

	close(r.release)
	assert.Eventually(t, func() bool {
		got, err := h.Get(context.Background(), rec.ID)
		return err == nil && got.Status == domain.RunDone
	}, time.Second, 5*time.Millisecond)

	got, _ := h.Get(context.Background(), rec.ID)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.LoopRecovered, got.Result.Verdict)
	assert.Equal(t, "webhook", got.Source)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))

	assert.Eventually(t, func() bool { return len(d.Active()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("webapp", "recovered")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsActive))
}

func TestSubmit_OneActiveRunPerTarget(t *testing.T) {
	r := newGatedRunner()
	d, _, _ := newDispatcher(r, Options{Workers: 2, QueueSize: 4})
	d.Start(context.Background())
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	first, err := d.Submit(context.Background(), webapp("webapp"), "", "webhook")
	require.NoError(t, err)

	dup, err := d.Submit(context.Background(), webapp("webapp"), "", "sweep")
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, first.ID, dup.ID)

	_, err = d.Submit(context.Background(), webapp("api"), "", "webhook")
	assert.NoError(t, err, "other targets are independent")

	<-r.started
	<-r.started
	close(r.release)

	assert.Eventually(t, func() bool {
		_, err := d.Submit(context.Background(), webapp("webapp"), "", "webhook")
		return err == nil
	}, time.Second, 5*time.Millisecond, "target accepts a new run once the previous one finished")
}

func TestSubmit_QueueFull(t *testing.T) {
	d, h, _ := newDispatcher(newGatedRunner(), Options{Workers: 1, QueueSize: 1})
	// Workers not started: the queue only fills.

	_, err := d.Submit(context.Background(), webapp("a"), "", "cli")
	require.NoError(t, err)
	_, err = d.Submit(context.Background(), webapp("b"), "", "cli")
	require.NoError(t, err)

	_, err = d.Submit(context.Background(), webapp("c"), "", "cli")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.NotContains(t, d.Active(), "c")
	assert.Equal(t, 2, h.Count(), "rejected runs are not recorded")
}

func TestStop_AbortsInFlightAndRejects(t *testing.T) {
	r := newGatedRunner()
	d, h, _ := newDispatcher(r, Options{Workers: 1, QueueSize: 4})
	d.Start(context.Background())

	rec, err := d.Submit(context.Background(), webapp("webapp"), "", "webhook")
	require.NoError(t, err)
	<-r.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	got, err := h.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunDone, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.LoopAborted, got.Result.Verdict)

	_, err = d.Submit(context.Background(), webapp("webapp"), "", "webhook")
	assert.ErrorIs(t, err, ErrStopped)
	assert.NoError(t, d.Stop(ctx), "second Stop is a no-op")
}

func TestRunTimeoutBoundsRun(t *testing.T) {
	r := newGatedRunner()
	d, h, _ := newDispatcher(r, Options{Workers: 1, RunTimeout: 20 * time.Millisecond})
	d.Start(context.Background())
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	rec, err := d.Submit(context.Background(), webapp("webapp"), "", "cli")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := h.Get(context.Background(), rec.ID)
		return err == nil && got.Result != nil && got.Result.Verdict == domain.LoopAborted
	}, time.Second, 5*time.Millisecond)
}
