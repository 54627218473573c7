package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentcheck"
	"github.com/jpalmerr/agentcheck/config"
)

// watchCmd runs checks in a loop.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check availability every interval until interrupted",
	Long: `Check availability immediately and then once per interval, appending
one row per check, until interrupted (Ctrl+C) or SIGTERM.

The interval comes from the config file (default 15m) and can be
overridden with --interval.

Example:
  agentcheck watch -c config.yaml
  agentcheck watch --interval 5m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "time between checks (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	interval := cfg.Interval.Duration()
	if cmd.Flags().Changed("interval") {
		interval, _ = cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return errors.New("--interval must be positive")
		}
	}

	logger, closeLog := newLogger(cmd.OutOrStdout(), cfg.Log)
	defer func() { _ = closeLog() }()

	checker, err := agentcheck.New(config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create checker: %w", err)
	}
	defer checker.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return checker.Run(ctx, interval)
}
