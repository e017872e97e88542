package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dirsweep/internal/cleanup"
	"dirsweep/internal/config"
	"dirsweep/internal/exitcodes"
	"dirsweep/internal/history"
	"dirsweep/internal/logging"
	"dirsweep/internal/metrics"
)

// Pushgateway requests are bounded so a dead gateway cannot hang the exit
const pushTimeout = 10 * time.Second

func main() {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "Received signal %v, stopping after the current directory...\n", sig)
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitcodes.Success
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitcodes.InvalidConfig
	}

	logger, closeLog := logging.NewWithConfig(&cfg.Logging, stdout)
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(stderr, "Error: failed to close log file: %v\n", err)
		}
	}()

	metrics.Init()

	// Initialize database for run history
	var db *history.DB
	if cfg.HistoryEnabled() {
		db, err = history.Open(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open history database: %v", err)
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close history database: %v", err)
			}
		}()
	}

	cleaner := cleanup.NewCleaner(logger, cfg.DryRun, db)
	cleaner.SetProtectedPaths(cfg.ProtectedPaths)

	res, err := cleaner.Run(ctx, cfg.Path, cfg.Targets)
	switch {
	case errors.Is(err, cleanup.ErrRootNotFound),
		errors.Is(err, cleanup.ErrRootNotDir),
		errors.Is(err, cleanup.ErrRootUnreadable):
		logger.Printf("Error: %v", err)
		return exitcodes.InvalidRoot
	case errors.Is(err, context.Canceled):
		exportMetrics(logger, cfg, res.Root)
		return exitcodes.Interrupted
	case err != nil:
		logger.Printf("Error: %v", err)
		return exitcodes.InvalidConfig
	}

	exportMetrics(logger, cfg, res.Root)
	return exitcodes.Success
}

// exportMetrics writes and pushes the run's metrics; failures are logged only
func exportMetrics(logger *log.Logger, cfg *config.Config, root string) {
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Printf("ERROR: Failed to write metrics textfile: %v", err)
		}
	}
	if cfg.Metrics.PushURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := metrics.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.Job, root); err != nil {
			logger.Printf("ERROR: Failed to push metrics: %v", err)
		}
	}
}
