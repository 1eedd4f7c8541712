package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/planner"
	"github.com/MrSnakeDoc/medic/internal/remediation"
)

// createTable creates a new table with standard styling
func createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func colorVerdict(v domain.LoopVerdict) string {
	switch v {
	case domain.LoopHealthy, domain.LoopRecovered:
		return text.FgGreen.Sprint(v)
	case domain.LoopExhausted:
		return text.FgRed.Sprint(v)
	default:
		return text.FgYellow.Sprint(v)
	}
}

func colorProbe(v domain.HealthVerdict) string {
	if v.IsHealthy() {
		return text.FgGreen.Sprint(v.String())
	}
	return text.FgRed.Sprint(v.String())
}

func renderResult(w io.Writer, res domain.LoopResult) {
	fmt.Fprintf(w, "%s %s\n\n", text.FgHiBlue.Sprint("Verdict:"), colorVerdict(res.Verdict))
	fmt.Fprintln(w, res.Narrative)

	if len(res.Actions) > 0 {
		fmt.Fprintln(w)
		t := createTable(w)
		t.AppendHeader(header("CYCLE", "INSTANCE", "PLANNED", "APPLIED", "OUTCOME", "DURATION"))
		for _, a := range res.Actions {
			outcome := string(a.Outcome.Kind)
			if a.Outcome.Cause != "" {
				outcome += ": " + a.Outcome.Cause
			}
			t.AppendRow(table.Row{
				a.Cycle,
				a.Action.InstanceID,
				a.Action.Kind,
				a.Outcome.Applied,
				outcome,
				a.Duration.Round(time.Millisecond),
			})
		}
		t.Render()
	}

	if len(res.Advice) > 0 {
		fmt.Fprintf(w, "\n%s\n", text.FgHiBlue.Sprint("Advice:"))
		for _, a := range res.Advice {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}

	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n%s\n", text.FgHiBlue.Sprint("Diagnostics:"))
		for _, d := range res.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}

func renderPreview(w io.Writer, target domain.ServiceTarget, pv remediation.Preview) {
	fmt.Fprintf(w, "%s %s %s\n", text.FgHiBlue.Sprint("Target:"), target.Name, colorProbe(pv.Probe))
	if pv.Snapshot == nil {
		fmt.Fprintf(w, "%s\n", text.FgGreen.Sprint("Healthy, nothing to plan."))
		return
	}

	renderSnapshot(w, *pv.Snapshot)

	if len(pv.Plan) == 0 {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No actions planned"))
		return
	}
	t := createTable(w)
	t.AppendHeader(header("#", "INSTANCE", "ACTION"))
	for i, a := range pv.Plan {
		t.AppendRow(table.Row{i + 1, a.InstanceID, a.Kind})
	}
	t.Render()
	fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("Dry run:"), "no action was applied")
}

func renderSnapshot(w io.Writer, snap domain.FleetSnapshot) {
	if snap.Empty() {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No instances found"))
		return
	}
	t := createTable(w)
	t.AppendHeader(header("INSTANCE", "STATUS", "EXIT", "DOWN"))
	for _, inst := range snap.Instances {
		down := ""
		if planner.IsDown(inst) {
			down = text.FgRed.Sprint("yes")
		}
		exit := ""
		if inst.Lifecycle == domain.LifecycleExited {
			exit = strconv.Itoa(inst.ExitCode)
		}
		t.AppendRow(table.Row{inst.ID, inst.String(), exit, down})
	}
	t.Render()
}

func renderTargets(w io.Writer, targets []domain.ServiceTarget) {
	t := createTable(w)
	t.AppendHeader(header("NAME", "HEALTH URL", "INSTANCE PREFIX", "PROBE TIMEOUT", "MAX CYCLES"))
	for _, tg := range targets {
		timeout, cycles := "default", "default"
		if tg.ProbeTimeout > 0 {
			timeout = tg.ProbeTimeout.String()
		}
		if tg.MaxCycles > 0 {
			cycles = strconv.Itoa(tg.MaxCycles)
		}
		t.AppendRow(table.Row{tg.Name, tg.HealthURL, tg.InstancePrefix, timeout, cycles})
	}
	t.Render()
}

type statusRow struct {
	target   domain.ServiceTarget
	probe    domain.HealthVerdict
	snapshot domain.FleetSnapshot
	err      error
}

func renderStatus(w io.Writer, rows []statusRow) {
	t := createTable(w)
	t.AppendHeader(header("TARGET", "PROBE", "INSTANCE", "STATUS"))
	for _, r := range rows {
		probe := colorProbe(r.probe)
		switch {
		case r.err != nil:
			t.AppendRow(table.Row{r.target.Name, probe, "-", text.FgRed.Sprint(r.err.Error())})
		case r.snapshot.Empty():
			t.AppendRow(table.Row{r.target.Name, probe, "-", text.FgYellow.Sprint("no instances")})
		default:
			for i, inst := range r.snapshot.Instances {
				name, p := r.target.Name, probe
				if i > 0 {
					name, p = "", ""
				}
				status := inst.String()
				if planner.IsDown(inst) {
					status = text.FgRed.Sprint(status)
				}
				t.AppendRow(table.Row{name, p, inst.ID, status})
			}
		}
		t.AppendSeparator()
	}
	t.Render()
}
