package domain

import (
	"fmt"
	"time"
)

// LoopVerdict is the terminal state of a remediation run.
type LoopVerdict string

const (
	// LoopHealthy means the first probe passed and nothing was done.
	LoopHealthy LoopVerdict = "healthy"
	// LoopRecovered means a reprobe passed after at least one cycle.
	LoopRecovered LoopVerdict = "recovered"
	// LoopExhausted means the cycle bound was reached with the target still failing.
	LoopExhausted LoopVerdict = "exhausted"
	// LoopAborted means the run was cancelled between steps.
	LoopAborted LoopVerdict = "aborted"
)

// LoopResult is the terminal record of one remediation run.
type LoopResult struct {
	Target       string         `json:"target"`
	Problem      string         `json:"problem,omitempty"`
	Verdict      LoopVerdict    `json:"verdict"`
	FinalProbe   HealthVerdict  `json:"final_probe"`
	Cycles       int            `json:"cycles"`
	Actions      []ActionRecord `json:"actions"`
	Diagnostics  []string       `json:"diagnostics,omitempty"`
	Advice       []string       `json:"advice,omitempty"`
	Narrative    string         `json:"narrative"`
	LastSnapshot *FleetSnapshot `json:"last_snapshot,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// Succeeded reports whether the target ended healthy.
func (r LoopResult) Succeeded() bool {
	return r.Verdict == LoopHealthy || r.Verdict == LoopRecovered
}

// Err returns ErrRetriesExhausted for exhausted runs and nil otherwise.
// Aborted runs return the abort as an error as well.
func (r LoopResult) Err() error {
	switch r.Verdict {
	case LoopExhausted:
		return fmt.Errorf("%w after %d cycles (%d actions): %s",
			ErrRetriesExhausted, r.Cycles, len(r.Actions), r.FinalProbe)
	case LoopAborted:
		return fmt.Errorf("remediation of %s aborted after %d cycles", r.Target, r.Cycles)
	default:
		return nil
	}
}

// Count returns how many actions resolved to the given outcome.
func (r LoopResult) Count(kind OutcomeKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Outcome.Kind == kind {
			n++
		}
	}
	return n
}
