// Package remediation runs the bounded detect, diagnose, act and verify
// cycle for one service target.
package remediation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/medic/internal/advisor"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/planner"
	"github.com/MrSnakeDoc/medic/internal/probe"
)

const (
	// DefaultMaxCycles bounds inspect/plan/act cycles per run.
	DefaultMaxCycles = 3
	// DefaultLogTail is how many log lines are collected per instance.
	DefaultLogTail = 20
)

// Inspector captures a fresh fleet snapshot.
type Inspector interface {
	Inspect(ctx context.Context, target domain.ServiceTarget) (domain.FleetSnapshot, error)
}

// Actor applies one action and always resolves it to an outcome.
type Actor interface {
	Act(ctx context.Context, action domain.RemediationAction) domain.ActionOutcome
}

// LogReader fetches recent instance logs for diagnostics.
type LogReader interface {
	Logs(ctx context.Context, id string, tail int) (string, error)
}

// Deps are the collaborators of a Loop. Logs and Advisor are optional.
type Deps struct {
	Prober    probe.Prober
	Inspector Inspector
	Actuator  Actor
	Logs      LogReader
	Advisor   *advisor.Advisor
	Logger    logger.Logger
}

// Options tune a Loop.
type Options struct {
	MaxCycles       int           // per-run bound, overridden by ServiceTarget.MaxCycles
	ParallelActions int           // concurrent actuator calls within one cycle
	LogTail         int           // log lines collected per instance
	LogTimeout      time.Duration // bound for each log fetch
}

// Loop is stateless between runs and safe for concurrent use on distinct
// targets.
type Loop struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func New(deps Deps, opts Options) *Loop {
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = DefaultMaxCycles
	}
	if opts.ParallelActions <= 0 {
		opts.ParallelActions = 1
	}
	if opts.LogTail <= 0 {
		opts.LogTail = DefaultLogTail
	}
	if opts.LogTimeout <= 0 {
		opts.LogTimeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Loop{deps: deps, opts: opts, now: time.Now}
}

type state string

const (
	stateProbing    state = "probing"
	stateInspecting state = "inspecting"
	statePlanning   state = "planning"
	stateActing     state = "acting"
	stateReprobing  state = "reprobing"
	stateDone       state = "done"
)

// run holds the mutable bookkeeping of one invocation.
type run struct {
	target   domain.ServiceTarget
	bound    int
	log      logger.Logger
	result   domain.LoopResult
	snapshot *domain.FleetSnapshot
	plan     []domain.RemediationAction
	acted    []string
	evidence []advisor.Evidence
}

// Run executes one invocation for target. It never returns an error; the
// terminal state, including RetriesExhausted, is carried by the result.
func (l *Loop) Run(ctx context.Context, target domain.ServiceTarget, problem string) domain.LoopResult {
	r := &run{
		target: target,
		bound:  l.opts.MaxCycles,
		log:    l.deps.Logger.With(logger.String("target", target.Name)),
		result: domain.LoopResult{
			Target:    target.Name,
			Problem:   problem,
			Actions:   []domain.ActionRecord{},
			StartedAt: l.now(),
		},
	}
	if target.MaxCycles > 0 {
		r.bound = target.MaxCycles
	}

	st := stateProbing
	for st != stateDone {
		if ctx.Err() != nil {
			r.log.Warn("remediation aborted",
				logger.String("state", string(st)),
				logger.Int("cycle", r.result.Cycles))
			r.result.Verdict = domain.LoopAborted
			r.diag("aborted while %s: %v", st, context.Cause(ctx))
			break
		}

		r.log.Debug("remediation state", logger.String("state", string(st)), logger.Int("cycle", r.result.Cycles))

		switch st {
		case stateProbing:
			st = l.probing(ctx, r)
		case stateInspecting:
			st = l.inspecting(ctx, r)
		case statePlanning:
			st = l.planning(r)
		case stateActing:
			st = l.acting(ctx, r)
		case stateReprobing:
			st = l.reprobing(ctx, r)
		}
	}

	l.finish(r)
	return r.result
}

func (l *Loop) probing(ctx context.Context, r *run) state {
	v := l.deps.Prober.Probe(ctx, r.target)
	r.result.FinalProbe = v
	if v.IsHealthy() {
		r.result.Verdict = domain.LoopHealthy
		return stateDone
	}
	r.log.Info("target failing probe, starting remediation", logger.String("probe", v.String()))
	return stateInspecting
}

func (l *Loop) inspecting(ctx context.Context, r *run) state {
	r.result.Cycles++
	r.snapshot = nil
	r.plan = nil
	r.acted = nil

	snap, err := l.deps.Inspector.Inspect(ctx, r.target)
	if err != nil {
		// Nothing to plan without a snapshot; verify and move on.
		r.diag("cycle %d: inspection failed: %v", r.result.Cycles, err)
		r.log.Warn("fleet inspection failed", logger.Int("cycle", r.result.Cycles), logger.Error(err))
		return stateReprobing
	}

	r.snapshot = &snap
	r.result.LastSnapshot = &snap
	if snap.Empty() {
		r.diag("cycle %d: no instances found with prefix %q", r.result.Cycles, r.target.InstancePrefix)
	}
	return statePlanning
}

func (l *Loop) planning(r *run) state {
	r.plan = planner.Plan(*r.snapshot)
	if len(r.plan) == 0 {
		if !r.snapshot.Empty() {
			r.diag("cycle %d: all %d instances look healthy, nothing to act on", r.result.Cycles, len(r.snapshot.Instances))
		}
		return stateReprobing
	}
	r.log.Info("remediation planned",
		logger.Int("cycle", r.result.Cycles),
		logger.Int("actions", len(r.plan)))
	return stateActing
}

func (l *Loop) acting(ctx context.Context, r *run) state {
	records := make([]*domain.ActionRecord, len(r.plan))

	var g errgroup.Group
	g.SetLimit(l.opts.ParallelActions)
	for i, action := range r.plan {
		g.Go(func() error {
			// Not yet started actions are skipped on abort; started ones
			// run to completion inside the actuator.
			if ctx.Err() != nil {
				return nil
			}
			start := l.now()
			out := l.deps.Actuator.Act(ctx, action)
			records[i] = &domain.ActionRecord{
				Cycle:    r.result.Cycles,
				Action:   action,
				Outcome:  out,
				Duration: l.now().Sub(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		r.result.Actions = append(r.result.Actions, *rec)
		r.acted = append(r.acted, rec.Action.InstanceID)
	}
	return stateReprobing
}

func (l *Loop) reprobing(ctx context.Context, r *run) state {
	v := l.deps.Prober.Probe(ctx, r.target)
	r.result.FinalProbe = v
	if v.IsHealthy() {
		r.result.Verdict = domain.LoopRecovered
		return stateDone
	}

	r.log.Info("target still failing after cycle",
		logger.Int("cycle", r.result.Cycles),
		logger.Int("bound", r.bound),
		logger.String("probe", v.String()))
	l.collectEvidence(ctx, r)

	if r.result.Cycles >= r.bound {
		r.result.Verdict = domain.LoopExhausted
		return stateDone
	}
	return stateInspecting
}

// collectEvidence fetches logs of the instances acted on this cycle, or of
// the down instances when nothing was acted on.
func (l *Loop) collectEvidence(ctx context.Context, r *run) {
	if r.snapshot == nil {
		return
	}
	ids := r.acted
	if len(ids) == 0 {
		for _, inst := range planner.Down(*r.snapshot) {
			ids = append(ids, inst.ID)
		}
	}

	for _, id := range ids {
		inst, ok := r.snapshot.Lookup(id)
		if !ok {
			continue
		}
		ev := advisor.Evidence{Instance: inst}
		if l.deps.Logs != nil {
			logCtx, cancel := context.WithTimeout(ctx, l.opts.LogTimeout)
			text, err := l.deps.Logs.Logs(logCtx, id, l.opts.LogTail)
			cancel()
			if err != nil {
				r.diag("cycle %d: logs for %s unavailable: %v", r.result.Cycles, id, err)
			} else if text = strings.TrimSpace(text); text != "" {
				ev.Logs = text
				r.diag("cycle %d: last %d log lines of %s:\n%s", r.result.Cycles, l.opts.LogTail, id, text)
			}
		}
		r.evidence = append(r.evidence, ev)
	}
}

func (l *Loop) finish(r *run) {
	res := &r.result
	if res.Verdict != domain.LoopHealthy && l.deps.Advisor != nil {
		report := l.deps.Advisor.Analyze(r.evidence, res.Actions)
		res.Advice = append(res.Advice, report.Signals...)
		res.Advice = append(res.Advice, report.Recommendations...)
	}
	res.FinishedAt = l.now()
	res.Narrative = Narrate(*res)

	fields := []logger.Field{
		logger.String("verdict", string(res.Verdict)),
		logger.Int("cycles", res.Cycles),
		logger.Int("actions", len(res.Actions)),
		logger.String("probe", res.FinalProbe.String()),
		logger.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	}
	switch res.Verdict {
	case domain.LoopHealthy, domain.LoopRecovered:
		r.log.Info("remediation finished", fields...)
	default:
		r.log.Warn("remediation finished without recovery", fields...)
	}
}

func (r *run) diag(format string, args ...any) {
	r.result.Diagnostics = append(r.result.Diagnostics, fmt.Sprintf(format, args...))
}
