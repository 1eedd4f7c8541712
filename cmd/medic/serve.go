package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/medic/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server, dispatcher and schedulers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup()
		defer func() { _ = log.Sync() }()

		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		return a.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
