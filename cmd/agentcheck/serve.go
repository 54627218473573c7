package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentcheck"
	"github.com/jpalmerr/agentcheck/config"
	"github.com/jpalmerr/agentcheck/dashboard"
	"github.com/jpalmerr/agentcheck/internal/csvlog"
	"github.com/jpalmerr/agentcheck/internal/server"
	"github.com/jpalmerr/agentcheck/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the dashboard over the CSV log.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the agentcheck dashboard server.

The server will:
  - Load the rows already in the CSV log
  - Pick up rows appended by other agentcheck runs (e.g. cron)
  - Serve the dashboard UI, JSON/CSV API and a live SSE stream

With --poll the server also runs the check loop itself at the configured
interval instead of following the file.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  agentcheck serve -c config.yaml
  agentcheck serve --poll --port 9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("poll", false, "run checks in-process at the configured interval")
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	poll, _ := cmd.Flags().GetBool("poll")

	logger, closeLog := newLogger(cmd.OutOrStdout(), cfg.Log)
	defer func() { _ = closeLog() }()

	if err := os.MkdirAll(filepath.Dir(cfg.CSVFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	st := store.NewMemoryStore(store.DefaultCapacity)

	rows, offset, err := csvlog.ReadFrom(cfg.CSVFile, 0)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", cfg.CSVFile, err)
	}
	for _, row := range rows {
		st.Add(recordFromRow(row))
	}
	logger.Info("loaded existing records", "path", cfg.CSVFile, "records", len(rows))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if poll {
		checker, err := agentcheck.New(config.BuildOptions(cfg, logger,
			agentcheck.WithRecordCallback(func(rec agentcheck.Record) {
				st.Add(recordFromCheck(rec))
			}),
		)...)
		if err != nil {
			return fmt.Errorf("failed to create checker: %w", err)
		}
		defer checker.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := checker.Run(ctx, cfg.Interval.Duration()); err != nil {
				logger.Error("check loop stopped", "error", err)
			}
		}()
	} else {
		follower, err := csvlog.NewFollower(cfg.CSVFile, offset, logger)
		if err != nil {
			return fmt.Errorf("failed to follow %s: %w", cfg.CSVFile, err)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			follower.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			forwardRows(ctx, follower.Rows(), st)
		}()
	}

	srv := server.NewServer(st, port, cfg.CSVFile, dashboard.Assets, cfg.Server.Title, logger)
	if err := srv.Start(ctx); err != nil {
		stop()
		wg.Wait()
		return err
	}

	logger.Info("server started",
		"port", port,
		"csv_file", cfg.CSVFile,
		"poll", poll,
	)

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
