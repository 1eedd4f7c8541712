// Package planner decides which instances of a snapshot need remediation.
package planner

import (
	"sort"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// IsDown reports whether an instance needs remediation.
//
// An instance is up only when it is explicitly running and its health is
// healthy, absent, or still starting. Everything else, unknown lifecycles
// included, is down.
func IsDown(s domain.InstanceStatus) bool {
	if s.Lifecycle == domain.LifecycleExited {
		return true
	}
	if s.Health == domain.HealthUnhealthy {
		return true
	}
	if s.Lifecycle != domain.LifecycleRunning {
		return true
	}
	switch s.Health {
	case domain.HealthHealthy, domain.HealthNone, domain.HealthStarting, "":
		return false
	default:
		return true
	}
}

// ActionFor picks the operation for a down instance. Unknown lifecycles get
// a restart; the actuator turns it into a start if the instance turns out to
// be stopped.
func ActionFor(s domain.InstanceStatus) domain.ActionKind {
	if s.Lifecycle == domain.LifecycleExited {
		return domain.ActionStart
	}
	return domain.ActionRestart
}

// Plan returns one action per down instance, ordered by instance ID. A
// snapshot without down instances yields an empty, non-nil slice.
func Plan(snapshot domain.FleetSnapshot) []domain.RemediationAction {
	actions := make([]domain.RemediationAction, 0, len(snapshot.Instances))
	seen := make(map[string]bool, len(snapshot.Instances))

	for _, inst := range snapshot.Instances {
		if inst.ID == "" || seen[inst.ID] || !IsDown(inst) {
			continue
		}
		seen[inst.ID] = true
		actions = append(actions, domain.RemediationAction{
			InstanceID: inst.ID,
			Kind:       ActionFor(inst),
		})
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].InstanceID < actions[j].InstanceID })
	return actions
}

// Down returns the down instances of a snapshot in snapshot order.
func Down(snapshot domain.FleetSnapshot) []domain.InstanceStatus {
	var down []domain.InstanceStatus
	for _, inst := range snapshot.Instances {
		if IsDown(inst) {
			down = append(down, inst)
		}
	}
	return down
}
