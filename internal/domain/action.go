package domain

import "time"

// ActionKind is the corrective operation applied to one instance.
type ActionKind string

const (
	ActionRestart ActionKind = "restart"
	ActionStart   ActionKind = "start"
)

// RemediationAction is a planner decision. It is only ever derived from the
// snapshot it was planned from and is consumed exactly once.
type RemediationAction struct {
	InstanceID string     `json:"instance_id"`
	Kind       ActionKind `json:"kind"`
}

// OutcomeKind is the resolution of one actuator call.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeNotFound  OutcomeKind = "not_found"
	OutcomeFailed    OutcomeKind = "failed"
)

// ActionOutcome records how an action resolved. Applied is the operation that
// actually reached the platform, which differs from the planned kind when a
// restart fell back to a start.
type ActionOutcome struct {
	Kind    OutcomeKind `json:"kind"`
	Applied ActionKind  `json:"applied,omitempty"`
	Cause   string      `json:"cause,omitempty"`
}

// ActionRecord is one executed action inside a LoopResult.
type ActionRecord struct {
	Cycle    int               `json:"cycle"`
	Action   RemediationAction `json:"action"`
	Outcome  ActionOutcome     `json:"outcome"`
	Duration time.Duration     `json:"duration"`
}
