package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpalmerr/agentcheck"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockAvailabilityServer(":9999", agentcheck.DefaultAPIName)
	time.Sleep(100 * time.Millisecond)

	csvFile := filepath.Join(os.TempDir(), "agentcheck-demo.csv")

	checker, err := agentcheck.New(
		agentcheck.WithURL("http://localhost:9999/ready"),
		agentcheck.WithCSVFile(csvFile),
		agentcheck.WithTimeout(2*time.Second),
		agentcheck.WithRecordCallback(func(rec agentcheck.Record) {
			ts, _, value := rec.Fields()
			fmt.Printf("  %s  %s\n", ts, value)
		}),
	)
	if err != nil {
		slog.Error("failed to create checker", "error", err)
		os.Exit(1)
	}
	defer checker.Close()

	fmt.Println()
	fmt.Println("  agentcheck demo")
	fmt.Println()
	fmt.Println("  Checking the mock endpoint every 5s, logging to:")
	fmt.Println("  " + csvFile)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := checker.Run(ctx, 5*time.Second); err != nil {
		slog.Error("checker error", "error", err)
		os.Exit(1)
	}
}
