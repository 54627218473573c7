// Package main is the entry point for the agentcheck CLI.
//
// Called without a subcommand it performs a single availability check,
// appends the result to the CSV log and exits 0, which makes it suitable
// for cron. The subcommands cover the longer-running modes.
//
// Usage:
//
//	agentcheck                          # One check with defaults or -c config
//	agentcheck check -c config.yaml     # Same, explicitly
//	agentcheck watch -c config.yaml     # Check every interval until interrupted
//	agentcheck serve -c config.yaml     # Dashboard over the CSV log
//	agentcheck validate -c config.yaml  # Validate configuration
//	agentcheck version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentcheck/config"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd runs a single check when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "agentcheck",
	Short: "Log agent availability to a CSV file",
	Long: `agentcheck polls an agent-availability endpoint and appends the number
of available agents to a CSV log.

Each run performs exactly one check and appends exactly one row:

  Timestamp,APIName,AvailableAgents
  2024-05-01 10:00:00,GP_Bosch_Rexroth_Chat_DC_VAG,5

Failures are recorded in place of the count as "Connection Error",
"Invalid JSON Response" or "Unknown Error". A failed check still exits 0.

Without a config file the built-in endpoint, counter name and
agent_availability_log.csv are used.`,
	Args:         cobra.NoArgs,
	RunE:         runCheck,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this agentcheck binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "agentcheck %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (defaults are used if omitted)")
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file loaded before the config (default .env if present, only with --config)")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the env file and then the config file named by the
// persistent flags. Without --config the defaults are returned and the
// default .env is not read, since nothing would expand its variables.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	configFile, _ := cmd.Flags().GetString("config")

	if configFile != "" || envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	if configFile == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
