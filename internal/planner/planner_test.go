package planner

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

func snap(instances ...domain.InstanceStatus) domain.FleetSnapshot {
	return domain.FleetSnapshot{Target: "webapp", Instances: instances}
}

func inst(id string, l domain.Lifecycle, h domain.Health) domain.InstanceStatus {
	return domain.InstanceStatus{ID: id, Lifecycle: l, Health: h}
}

func TestPlan_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   domain.FleetSnapshot
		want []domain.RemediationAction
	}{
		{
			name: "healthy running instance needs nothing",
			in:   snap(inst("w1", domain.LifecycleRunning, domain.HealthHealthy)),
			want: []domain.RemediationAction{},
		},
		{
			name: "exited instance is started",
			in:   snap(inst("w1", domain.LifecycleExited, domain.HealthNone)),
			want: []domain.RemediationAction{{InstanceID: "w1", Kind: domain.ActionStart}},
		},
		{
			name: "unhealthy and exited ordered by id",
			in: snap(
				inst("w2", domain.LifecycleExited, domain.HealthNone),
				inst("w1", domain.LifecycleRunning, domain.HealthUnhealthy),
			),
			want: []domain.RemediationAction{
				{InstanceID: "w1", Kind: domain.ActionRestart},
				{InstanceID: "w2", Kind: domain.ActionStart},
			},
		},
		{
			name: "running without healthcheck is up",
			in:   snap(inst("w1", domain.LifecycleRunning, domain.HealthNone)),
			want: []domain.RemediationAction{},
		},
		{
			name: "running with no health reported is up",
			in:   snap(domain.InstanceStatus{ID: "w1", Lifecycle: domain.LifecycleRunning}),
			want: []domain.RemediationAction{},
		},
		{
			name: "starting is given its grace period",
			in:   snap(inst("w1", domain.LifecycleRunning, domain.HealthStarting)),
			want: []domain.RemediationAction{},
		},
		{
			name: "unknown lifecycle is treated as down",
			in:   snap(inst("w1", domain.LifecycleUnknown, domain.HealthNone)),
			want: []domain.RemediationAction{{InstanceID: "w1", Kind: domain.ActionRestart}},
		},
		{
			name: "exited but reporting healthy is still started",
			in:   snap(inst("w1", domain.LifecycleExited, domain.HealthHealthy)),
			want: []domain.RemediationAction{{InstanceID: "w1", Kind: domain.ActionStart}},
		},
		{
			name: "empty snapshot",
			in:   snap(),
			want: []domain.RemediationAction{},
		},
		{
			name: "duplicate ids yield one action",
			in: snap(
				inst("w1", domain.LifecycleExited, domain.HealthNone),
				inst("w1", domain.LifecycleExited, domain.HealthNone),
			),
			want: []domain.RemediationAction{{InstanceID: "w1", Kind: domain.ActionStart}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.in))
		})
	}
}

func TestPlan_Properties(t *testing.T) {
	lifecycles := []domain.Lifecycle{domain.LifecycleRunning, domain.LifecycleExited, domain.LifecycleUnknown}
	healths := []domain.Health{domain.HealthHealthy, domain.HealthUnhealthy, domain.HealthStarting, domain.HealthNone}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(8)
		var instances []domain.InstanceStatus
		down := 0
		for i := 0; i < n; i++ {
			s := inst(fmt.Sprintf("w%02d", rng.Intn(20)),
				lifecycles[rng.Intn(len(lifecycles))],
				healths[rng.Intn(len(healths))])
			instances = append(instances, s)
		}
		downIDs := map[string]bool{}
		for _, s := range instances {
			if IsDown(s) {
				downIDs[s.ID] = true
			}
		}
		down = len(downIDs)

		plan := Plan(snap(instances...))

		assert.LessOrEqual(t, len(plan), down, "round %d", round)
		assert.True(t, sort.SliceIsSorted(plan, func(i, j int) bool {
			return plan[i].InstanceID < plan[j].InstanceID
		}), "round %d: plan not sorted", round)

		ids := map[string]bool{}
		for _, a := range plan {
			assert.False(t, ids[a.InstanceID], "round %d: duplicate action for %s", round, a.InstanceID)
			ids[a.InstanceID] = true
			_, ok := snap(instances...).Lookup(a.InstanceID)
			assert.True(t, ok, "round %d: action for instance outside snapshot", round)
		}
		if down == 0 {
			assert.Empty(t, plan, "round %d", round)
		}
	}
}

func TestDown(t *testing.T) {
	s := snap(
		inst("a", domain.LifecycleRunning, domain.HealthHealthy),
		inst("b", domain.LifecycleExited, domain.HealthNone),
	)
	down := Down(s)
	if assert.Len(t, down, 1) {
		assert.Equal(t, "b", down[0].ID)
	}
}
