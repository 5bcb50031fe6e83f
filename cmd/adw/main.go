// Package main provides the adw binary: the pipeline driver plus
// operator tooling for inspecting artifacts, steps, slash commands,
// and the issue database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	// Register agent providers, steps, and workflow definitions via init()
	_ "github.com/c360studio/adw/agent/providers"
	_ "github.com/c360studio/adw/steps"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/c360studio/adw/issue"
	"github.com/c360studio/adw/pipeline"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "adw"
)

var (
	flagConfigPath string
	flagLogLevel   string
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
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Autonomous development workflow orchestrator",
		Long: `adw drives autonomous development workflows: it fetches an issue,
classifies it, plans and implements a change with coding agents, runs
automated review and quality gates, and opens a pull request.

The run subcommand executes a full pipeline for one issue. The other
subcommands are operator tooling for inspecting artifacts, the step
registry, registered slash commands, and the issue database.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(flagLogLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCommand())
	cmd.AddCommand(artifactCommand())
	cmd.AddCommand(stepCommand())
	cmd.AddCommand(dbCommand())
	cmd.AddCommand(commandsCommand())

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

func runCommand() *cobra.Command {
	var (
		adwID        string
		workflowType string
	)

	cmd := &cobra.Command{
		Use:   "run [issue_id]",
		Short: "Execute a workflow pipeline",
		Long: `Run executes the named workflow pipeline end to end. Main and patch
workflows operate on one issue and require an issue id; codereview
reviews the working tree and can run without one.

Patch workflows share planning artifacts with their parent run, so they
must be started with the parent's workflow id plus the -patch suffix.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var issueID int64
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid issue id %q", args[0])
				}
				issueID = id
			}
			return runPipeline(adwID, workflowType, issueID)
		},
	}

	cmd.Flags().StringVar(&adwID, "adw-id", "", "Workflow run identifier (generated when omitted)")
	cmd.Flags().StringVar(&workflowType, "workflow-type", pipeline.WorkflowMain,
		fmt.Sprintf("Workflow type (%s)", strings.Join(pipeline.WorkflowTypes(), ", ")))

	return cmd
}

func runPipeline(adwID, workflowType string, issueID int64) error {
	if !pipeline.WorkflowRegistered(workflowType) {
		return fmt.Errorf("unknown workflow type %q (known: %s)",
			workflowType, strings.Join(pipeline.WorkflowTypes(), ", "))
	}
	if issueID == 0 && workflowType != pipeline.WorkflowCodeReview {
		return fmt.Errorf("issue id is required for %s workflows", workflowType)
	}
	if adwID == "" {
		if workflowType == pipeline.WorkflowPatch {
			return fmt.Errorf("--adw-id is required for patch workflows (use <parent>%s)", artifact.PatchSuffix)
		}
		adwID = pipeline.NewADWID()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	opts := []pipeline.RunnerOption{pipeline.WithRunnerLogger(logger)}

	store, err := openIssueStore(ctx, cfg, logger)
	if err != nil {
		if issueID != 0 {
			return err
		}
		logger.Debug("Running without an issue store", "error", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, pipeline.WithIssueStore(store))
	}

	runner := pipeline.NewRunner(cfg, opts...)
	logger.Info("Workflow starting",
		"adw_id", adwID,
		"workflow_type", workflowType,
		"issue_id", issueID)

	ok, err := runner.Run(ctx, pipeline.RunParams{
		ADWID:        adwID,
		WorkflowType: workflowType,
		IssueID:      issueID,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("workflow %s failed", adwID)
	}

	logger.Info("Workflow completed", "adw_id", adwID)
	return nil
}

// configureLogging installs the process-wide slog handler.
func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error", "critical":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig resolves configuration via the layered loader, honouring
// the --config flag when set.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(slog.Default()).Load(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openIssueStore connects to the shared issue database. The error names
// the missing environment when no connection string is configured.
func openIssueStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*issue.PGStore, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return issue.OpenStore(ctx, dsn, logger)
}
