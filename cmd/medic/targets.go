package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/medic/internal/app"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect configured targets",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := setup()
		targets, err := app.TargetLoader(cfg).Load()
		if err != nil {
			return err
		}
		renderTargets(cmd.OutOrStdout(), targets)
		return nil
	},
}

var targetsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe every target and show its instances",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rows := make([]statusRow, 0, len(targets))
		for _, t := range targets {
			row := statusRow{target: t, probe: components.Prober.Probe(ctx, t)}
			snap, err := components.Inspector.Inspect(ctx, t)
			if err != nil {
				row.err = err
			} else {
				row.snapshot = snap
			}
			rows = append(rows, row)
		}
		renderStatus(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	targetsCmd.AddCommand(targetsListCmd, targetsStatusCmd)
	rootCmd.AddCommand(targetsCmd)
}
