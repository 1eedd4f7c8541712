// Package advisor turns diagnostics gathered during remediation into
// operator-facing signals and recommendations. Its output is advisory: it
// never changes what the planner decides.
package advisor

import (
	"fmt"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityDegraded Severity = "DEGRADED"
	SeverityCritical Severity = "CRITICAL"
)

// Report is the advisor summary for one run.
type Report struct {
	Severity        Severity `json:"severity"`
	Summary         string   `json:"summary"`
	Signals         []string `json:"signals"`
	Recommendations []string `json:"recommendations"`
}

// Advisor applies a fixed rule set.
type Advisor struct {
	rules []Rule
}

// New returns an advisor with the default rules, or the given ones.
func New(rules ...Rule) *Advisor {
	if len(rules) == 0 {
		rules = []Rule{
			MemoryExhaustionRule,
			CrashRule,
			PortConflictRule,
			DependencyRule,
			ExitCodeRule,
		}
	}
	return &Advisor{rules: rules}
}

// Analyze evaluates the collected evidence and the actions already taken.
func (a *Advisor) Analyze(evidence []Evidence, actions []domain.ActionRecord) Report {
	var (
		signals         = []string{}
		recommendations = []string{}
		seen            = map[string]bool{}
		severity        = SeverityOK
	)

	escalate := func(s Severity) {
		if s == SeverityCritical {
			severity = SeverityCritical
		} else if s == SeverityDegraded && severity == SeverityOK {
			severity = SeverityDegraded
		}
	}
	add := func(r RuleResult) {
		escalate(r.Severity)
		if !seen["s:"+r.Signal] {
			seen["s:"+r.Signal] = true
			signals = append(signals, r.Signal)
		}
		if !seen["r:"+r.Recommendation] {
			seen["r:"+r.Recommendation] = true
			recommendations = append(recommendations, r.Recommendation)
		}
	}

	/* ---------- PER-INSTANCE RULES ---------- */
	for _, e := range evidence {
		for _, rule := range a.rules {
			if r := rule(e); r.Triggered {
				add(r)
			}
		}
	}

	/* ---------- HISTORY ---------- */
	counts := map[string]int{}
	var order []string
	for _, rec := range actions {
		if rec.Outcome.Kind != domain.OutcomeSucceeded {
			continue
		}
		if counts[rec.Action.InstanceID] == 0 {
			order = append(order, rec.Action.InstanceID)
		}
		counts[rec.Action.InstanceID]++
	}
	for _, id := range order {
		if counts[id] >= 2 {
			add(RuleResult{
				Signal:         fmt.Sprintf("%s: remediated %d times without recovering", id, counts[id]),
				Recommendation: "Restarts are not fixing this instance; escalate to a human",
				Severity:       SeverityCritical,
			})
		}
	}

	/* ---------- SUMMARY ---------- */
	summary := "No known failure pattern detected"
	if severity != SeverityOK {
		summary = fmt.Sprintf("%d failure signal(s) detected", len(signals))
	}

	return Report{
		Severity:        severity,
		Summary:         summary,
		Signals:         signals,
		Recommendations: recommendations,
	}
}
