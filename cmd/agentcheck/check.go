package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentcheck"
	"github.com/jpalmerr/agentcheck/config"
)

// checkCmd performs one check. It is what the root command runs too.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one availability check and append it to the CSV log",
	Long: `Run one availability check and append the result to the CSV log.

The outcome of the check never affects the exit status: connection
failures, invalid responses and write errors are logged and the command
exits 0. Only an invalid config file exits 1.

Example:
  agentcheck check
  agentcheck check -c /etc/agentcheck/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := newLogger(cmd.OutOrStdout(), cfg.Log)
	defer func() { _ = closeLog() }()

	checker, err := agentcheck.New(config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create checker: %w", err)
	}
	defer checker.Close()

	// an interrupt aborts the request and is recorded like any other failure
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker.Check(ctx)
	return nil
}
