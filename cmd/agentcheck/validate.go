package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without running a check.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an agentcheck configuration file without running a check.

This command loads the env file, parses the YAML, expands environment
variables, and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  agentcheck validate -c config.yaml
  agentcheck validate --config /etc/agentcheck/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  URL:       %s\n", cfg.URL)
	fmt.Fprintf(out, "  API name:  %s\n", cfg.APIName)
	if cfg.Field != "" {
		fmt.Fprintf(out, "  Field:     %s\n", cfg.Field)
	}
	fmt.Fprintf(out, "  CSV file:  %s\n", cfg.CSVFile)
	fmt.Fprintf(out, "  Timeout:   %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Interval:  %s\n", cfg.Interval.Duration())
	fmt.Fprintf(out, "  Headers:   %d\n", len(cfg.Headers))

	return nil
}
