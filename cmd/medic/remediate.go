package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/medic/internal/app"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/index"
)

// Exit statuses of the remediate command.
const (
	exitExhausted = 2
	exitAborted   = 3
)

var (
	remediateTarget string
	remediateDryRun bool
)

var remediateCmd = &cobra.Command{
	Use:   "remediate [problem description]",
	Short: "Run one remediation for a target and print the outcome",
	Long: `Probe the target and, if it is failing, run the bounded
inspect/plan/act/verify cycle once in this process.

Exit status is 0 when the target is healthy or recovered, 2 when retries
were exhausted and 3 when the run was interrupted.`,
	RunE: runRemediate,
}

func init() {
	remediateCmd.Flags().StringVarP(&remediateTarget, "target", "t", "", "target name (default: the default target)")
	remediateCmd.Flags().BoolVar(&remediateDryRun, "dry-run", false, "stop after planning and print the plan")
	rootCmd.AddCommand(remediateCmd)
}

func runRemediate(cmd *cobra.Command, args []string) error {
	cfg, log := setup()
	defer func() { _ = log.Sync() }()

	components, err := app.NewComponents(cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	targets, err := app.TargetLoader(cfg).Load()
	if err != nil {
		return err
	}
	idx := index.NewTargetIndex(app.DefaultTargetName(cfg))
	idx.Update(targets)

	target, err := pickTarget(idx, remediateTarget)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()

	if remediateDryRun {
		pv, err := components.Loop.Preview(ctx, target)
		if err != nil {
			return fmt.Errorf("preview %s: %w", target.Name, err)
		}
		renderPreview(out, target, pv)
		return nil
	}

	res := components.Loop.Run(ctx, target, strings.Join(args, " "))
	renderResult(out, res)

	switch res.Verdict {
	case domain.LoopExhausted:
		return exitCodeError{code: exitExhausted}
	case domain.LoopAborted:
		return exitCodeError{code: exitAborted}
	}
	return nil
}

func pickTarget(idx *index.TargetIndex, name string) (domain.ServiceTarget, error) {
	if name != "" {
		t, ok := idx.Get(name)
		if !ok {
			return domain.ServiceTarget{}, fmt.Errorf("unknown target %q", name)
		}
		return t, nil
	}
	t, ok := idx.Default()
	if !ok {
		return domain.ServiceTarget{}, fmt.Errorf("several targets configured, choose one with --target")
	}
	return t, nil
}
