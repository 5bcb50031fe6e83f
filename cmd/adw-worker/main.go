// Package main provides the adw-worker binary: a daemon that claims
// pending issues from the shared database and spawns the pipeline
// driver for each claim.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/issue"
	"github.com/c360studio/adw/worker"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "adw-worker"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath      string
		workerID        string
		pollInterval    time.Duration
		workflowTimeout time.Duration
		logLevel        string
		workingDir      string
		metricsAddr     string
	)

	defaults := worker.DefaultConfig()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Issue-claiming daemon for autonomous development workflows",
		Long: `adw-worker polls the shared issue database, claims pending issues,
and spawns the adw pipeline driver for each claim. Failed workflows are
requeued so another worker can retry them.

The first SIGINT or SIGTERM stops claiming and lets in-flight workflows
finish; a second signal aborts them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg := defaults
			wcfg.WorkerID = workerID
			wcfg.PollInterval = pollInterval
			wcfg.LogLevel = logLevel
			wcfg.WorkingDir = workingDir
			wcfg.MetricsAddr = metricsAddr

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: wcfg.SlogLevel()}))
			slog.SetDefault(logger)

			// A flag set explicitly beats the environment override.
			wcfg.ApplyTimeoutEnv(logger)
			if cmd.Flags().Changed("workflow-timeout") {
				wcfg.WorkflowTimeout = workflowTimeout
			}

			return runWorker(wcfg, configPath, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Unique worker identifier (required)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", defaults.PollInterval, "How often to poll for pending issues")
	cmd.Flags().DurationVar(&workflowTimeout, "workflow-timeout", defaults.WorkflowTimeout, "Per-workflow execution timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	cmd.Flags().StringVar(&workingDir, "working-dir", defaults.WorkingDir, "Working directory for spawned pipeline drivers")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (empty disables)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func runWorker(wcfg worker.Config, configPath string, logger *slog.Logger) error {
	cfg, err := config.NewLoader(logger).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := issue.OpenStore(ctx, dsn, logger)
	if err != nil {
		return fmt.Errorf("open issue store: %w", err)
	}
	defer store.Close()

	w, err := worker.New(wcfg, store)
	if err != nil {
		return err
	}
	w.WithLogger(logger)

	// First signal drains, second aborts in-flight workflows.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Signal received, finishing in-flight workflows")
		w.Stop()
		<-sigCh
		logger.Warn("Second signal received, aborting")
		cancel()
	}()

	return w.Run(ctx)
}
