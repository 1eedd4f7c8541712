package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/medic/internal/config"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/version"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "medic",
	Short: "Health-driven remediation for container fleets",
	Long: `medic watches a service health endpoint and, when it fails, inspects the
containers backing the service, restarts or starts the ones that are down
and verifies recovery, for a bounded number of cycles.

Configuration is read from MEDIC_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override MEDIC_LOG_LEVEL")
	rootCmd.AddCommand(versionCmd)
}

// exitCodeError ends the process with a specific status and no extra output.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// setup loads the environment configuration and builds the logger.
func setup() (*config.Config, logger.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, logger.New(cfg.LogLevel, cfg.PrettyLog)
}
