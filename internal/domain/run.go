package domain

import "time"

// RunStatus tracks a queued remediation run through the dispatcher.
type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
)

// RunRecord is what the history stores keep about one invocation.
type RunRecord struct {
	ID          string      `json:"id"`
	Target      string      `json:"target"`
	Problem     string      `json:"problem,omitempty"`
	Source      string      `json:"source,omitempty"` // webhook, sweep, cli
	Status      RunStatus   `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	FinishedAt  time.Time   `json:"finished_at,omitzero"`
	Result      *LoopResult `json:"result,omitempty"`
}
