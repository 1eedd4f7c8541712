package domain

import (
	"fmt"
	"time"
)

// Lifecycle is the coarse runtime state of an instance.
type Lifecycle string

const (
	LifecycleRunning Lifecycle = "running"
	LifecycleExited  Lifecycle = "exited"
	LifecycleUnknown Lifecycle = "unknown"
)

// Health is the platform-reported health probe result of an instance.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthStarting  Health = "starting"
	HealthNone      Health = "none"
)

// InstanceStatus is one observed instance. Values are replaced every cycle,
// never mutated.
type InstanceStatus struct {
	// ID is the instance identity used for ordering and actions (the
	// container name).
	ID string `json:"id"`

	// ContainerID is the platform's own short identifier, informational only.
	ContainerID string `json:"container_id,omitempty"`

	Lifecycle Lifecycle `json:"lifecycle"`
	Health    Health    `json:"health"`

	// RawState is the platform's state string before normalization.
	// Example: restarting
	RawState string `json:"raw_state,omitempty"`

	// ExitCode and OOMKilled are only meaningful for stopped instances.
	ExitCode  int  `json:"exit_code,omitempty"`
	OOMKilled bool `json:"oom_killed,omitempty"`
}

// String renders the status the way operators read it, for example
// "running (health: unhealthy)".
func (s InstanceStatus) String() string {
	state := string(s.Lifecycle)
	if s.RawState != "" && s.Lifecycle == LifecycleUnknown {
		state = s.RawState
	}
	if s.Health != "" && s.Health != HealthNone {
		return fmt.Sprintf("%s (health: %s)", state, s.Health)
	}
	return state
}

// FleetSnapshot is the ordered set of instances for one target at one point
// in time.
type FleetSnapshot struct {
	Target     string           `json:"target"`
	Instances  []InstanceStatus `json:"instances"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Empty reports whether no instance matched the target's prefix.
func (s FleetSnapshot) Empty() bool {
	return len(s.Instances) == 0
}

// Lookup returns the instance with the given ID.
func (s FleetSnapshot) Lookup(id string) (InstanceStatus, bool) {
	for _, inst := range s.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return InstanceStatus{}, false
}
