package advisor

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// Evidence is what the loop collected about one down instance.
type Evidence struct {
	Instance domain.InstanceStatus
	Logs     string
}

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Severity
}

// Rule evaluates the evidence of one instance.
type Rule func(e Evidence) RuleResult

// ---------- RULES ----------

// MemoryExhaustionRule fires on OOM kills, exit 137 or allocator errors in logs.
func MemoryExhaustionRule(e Evidence) RuleResult {
	if e.Instance.OOMKilled || e.Instance.ExitCode == 137 ||
		containsAny(e.Logs, "out of memory", "memoryerror", "cannot allocate memory", "oomkilled") {
		return RuleResult{
			Triggered:      true,
			Signal:         fmt.Sprintf("%s: memory exhaustion", e.Instance.ID),
			Recommendation: "Look for a memory leak or raise the memory limit; restarts only reset the leak",
			Severity:       SeverityCritical,
		}
	}
	return RuleResult{}
}

// CrashRule fires on panics and uncaught exceptions.
func CrashRule(e Evidence) RuleResult {
	if containsAny(e.Logs, "panic:", "traceback (most recent call last)", "segmentation fault", "fatal error:") {
		return RuleResult{
			Triggered:      true,
			Signal:         fmt.Sprintf("%s: application crash in logs", e.Instance.ID),
			Recommendation: "Inspect the stack trace; the process will keep crashing after restart",
			Severity:       SeverityCritical,
		}
	}
	return RuleResult{}
}

// PortConflictRule fires when the process could not bind its listener.
func PortConflictRule(e Evidence) RuleResult {
	if containsAny(e.Logs, "address already in use") {
		return RuleResult{
			Triggered:      true,
			Signal:         fmt.Sprintf("%s: listen address already in use", e.Instance.ID),
			Recommendation: "Check for a stray process or duplicate port mapping on the host",
			Severity:       SeverityDegraded,
		}
	}
	return RuleResult{}
}

// DependencyRule fires when logs show an upstream the instance cannot reach.
func DependencyRule(e Evidence) RuleResult {
	if containsAny(e.Logs, "connection refused", "no such host", "i/o timeout") {
		return RuleResult{
			Triggered:      true,
			Signal:         fmt.Sprintf("%s: dependency unreachable", e.Instance.ID),
			Recommendation: "Verify the services this instance depends on before restarting it again",
			Severity:       SeverityDegraded,
		}
	}
	return RuleResult{}
}

// ExitCodeRule reports a non-zero exit that no more specific rule explains.
func ExitCodeRule(e Evidence) RuleResult {
	code := e.Instance.ExitCode
	if e.Instance.Lifecycle == domain.LifecycleExited && code != 0 && code != 137 {
		return RuleResult{
			Triggered:      true,
			Signal:         fmt.Sprintf("%s: exited with code %d", e.Instance.ID, code),
			Recommendation: "Check the entrypoint and configuration of the stopped instance",
			Severity:       SeverityDegraded,
		}
	}
	return RuleResult{}
}

func containsAny(text string, needles ...string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
