package remediation

import (
	"context"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/planner"
)

// Preview is what one cycle would do, computed without acting.
type Preview struct {
	Probe    domain.HealthVerdict
	Snapshot *domain.FleetSnapshot
	Plan     []domain.RemediationAction
}

// Preview probes target and, when it is failing, inspects and plans once.
// The platform is never mutated.
func (l *Loop) Preview(ctx context.Context, target domain.ServiceTarget) (Preview, error) {
	var p Preview
	p.Probe = l.deps.Prober.Probe(ctx, target)
	if p.Probe.IsHealthy() {
		return p, nil
	}

	snap, err := l.deps.Inspector.Inspect(ctx, target)
	if err != nil {
		return p, err
	}
	p.Snapshot = &snap
	p.Plan = planner.Plan(snap)
	return p, nil
}
