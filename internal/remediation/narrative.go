package remediation

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// Narrate renders the human-readable summary of a result.
func Narrate(res domain.LoopResult) string {
	var b strings.Builder

	if res.Problem != "" {
		fmt.Fprintf(&b, "Problem: %s\n", res.Problem)
	}

	switch res.Verdict {
	case domain.LoopHealthy:
		fmt.Fprintf(&b, "Target %s is healthy. No action needed.", res.Target)
		return b.String()
	case domain.LoopRecovered:
		fmt.Fprintf(&b, "Target %s recovered after %d cycle(s).", res.Target, res.Cycles)
	case domain.LoopExhausted:
		fmt.Fprintf(&b, "Target %s is still failing after %d cycle(s) (%s). Human intervention required.",
			res.Target, res.Cycles, res.FinalProbe)
	case domain.LoopAborted:
		fmt.Fprintf(&b, "Remediation of %s was aborted after %d cycle(s).", res.Target, res.Cycles)
	}

	if len(res.Actions) == 0 {
		b.WriteString("\nNo actions were taken.")
	} else {
		fmt.Fprintf(&b, "\nActions (%d succeeded, %d not found, %d failed):",
			res.Count(domain.OutcomeSucceeded), res.Count(domain.OutcomeNotFound), res.Count(domain.OutcomeFailed))
		for _, a := range res.Actions {
			fmt.Fprintf(&b, "\n  - cycle %d: %s", a.Cycle, describe(a))
		}
	}

	if res.LastSnapshot != nil && res.LastSnapshot.Empty() {
		fmt.Fprintf(&b, "\nNo instances found for %s.", res.Target)
	}

	if len(res.Advice) > 0 {
		b.WriteString("\nAdvice:")
		for _, a := range res.Advice {
			fmt.Fprintf(&b, "\n  - %s", a)
		}
	}
	return b.String()
}

func describe(a domain.ActionRecord) string {
	id := a.Action.InstanceID
	switch a.Outcome.Kind {
	case domain.OutcomeSucceeded:
		if a.Outcome.Applied == domain.ActionStart && a.Action.Kind == domain.ActionRestart {
			return fmt.Sprintf("%s was stopped and has been started", id)
		}
		if a.Outcome.Applied == domain.ActionStart {
			return fmt.Sprintf("started %s", id)
		}
		return fmt.Sprintf("restarted %s", id)
	case domain.OutcomeNotFound:
		return fmt.Sprintf("%s not found (neither running nor stopped)", id)
	default:
		return fmt.Sprintf("%s %s failed: %s", a.Outcome.Applied, id, a.Outcome.Cause)
	}
}
