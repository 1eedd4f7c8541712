package actuator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/platform"
	"github.com/MrSnakeDoc/medic/internal/platform/fake"
)

func newActuator(p platform.Platform) *Actuator {
	return New(p, logger.New("error", false), time.Second)
}

func restart(id string) domain.RemediationAction {
	return domain.RemediationAction{InstanceID: id, Kind: domain.ActionRestart}
}

func TestAct_RestartRunning(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "running", Health: "healthy"})
	a := newActuator(p)

	for i := 0; i < 2; i++ {
		out := a.Act(context.Background(), restart("w1"))
		assert.Equal(t, domain.OutcomeSucceeded, out.Kind, "call %d", i+1)
		assert.Equal(t, domain.ActionRestart, out.Applied, "call %d", i+1)
	}
	assert.Equal(t, []string{"w1", "w1"}, p.CallsOf("restart"))
	assert.Empty(t, p.CallsOf("start"))
}

func TestAct_RestartStoppedFallsBackToStart(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "exited", ExitCode: 137})
	a := newActuator(p)

	out := a.Act(context.Background(), restart("w1"))

	assert.Equal(t, domain.OutcomeSucceeded, out.Kind)
	assert.Equal(t, domain.ActionStart, out.Applied)
	assert.Empty(t, p.CallsOf("restart"))
	assert.Equal(t, []string{"w1"}, p.CallsOf("start"))

	c, ok := p.Container("w1")
	require.True(t, ok)
	assert.True(t, c.Running())
}

func TestAct_PausedIsFailedWithoutStart(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "paused"})
	a := newActuator(p)

	out := a.Act(context.Background(), restart("w1"))

	assert.Equal(t, domain.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Cause, "paused")
	assert.Empty(t, p.CallsOf("start"))
	assert.Empty(t, p.CallsOf("restart"))
}

func TestAct_RestartRaceWithExit(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "running"})
	p.Fail("restart", "w1", platform.ErrNotRunning)
	a := newActuator(p)

	out := a.Act(context.Background(), restart("w1"))

	assert.Equal(t, domain.OutcomeSucceeded, out.Kind)
	assert.Equal(t, domain.ActionStart, out.Applied)
}

func TestAct_AbsentIsNotFound(t *testing.T) {
	p := fake.New()
	a := newActuator(p)

	out := a.Act(context.Background(), restart("ghost"))
	assert.Equal(t, domain.OutcomeNotFound, out.Kind)
	assert.Empty(t, p.CallsOf("start"), "absent instances are not started")

	out = a.Act(context.Background(), domain.RemediationAction{InstanceID: "ghost", Kind: domain.ActionStart})
	assert.Equal(t, domain.OutcomeNotFound, out.Kind)
}

func TestAct_PlatformErrorIsFailedAndNotRetried(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "running"})
	p.Fail("restart", "w1", errors.New("daemon timeout"))
	a := newActuator(p)

	out := a.Act(context.Background(), restart("w1"))

	assert.Equal(t, domain.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Cause, "daemon timeout")
	assert.Len(t, p.CallsOf("restart"), 1)
}

func TestAct_InspectErrorIsFailed(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "running"})
	p.Fail("get", "w1", errors.New("permission denied"))
	a := newActuator(p)

	out := a.Act(context.Background(), restart("w1"))
	assert.Equal(t, domain.OutcomeFailed, out.Kind)
	assert.Empty(t, p.CallsOf("restart"))
}

func TestAct_CompletesAfterCancellation(t *testing.T) {
	p := fake.New(platform.Container{Name: "w1", State: "exited"})
	a := newActuator(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := a.Act(ctx, domain.RemediationAction{InstanceID: "w1", Kind: domain.ActionStart})
	assert.Equal(t, domain.OutcomeSucceeded, out.Kind)
}

func TestAct_UnknownKind(t *testing.T) {
	a := newActuator(fake.New())
	out := a.Act(context.Background(), domain.RemediationAction{InstanceID: "w1", Kind: "delete"})
	assert.Equal(t, domain.OutcomeFailed, out.Kind)
}
