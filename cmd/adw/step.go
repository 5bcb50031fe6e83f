package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/pipeline"
	"github.com/spf13/cobra"
)

func stepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Inspect and run registered pipeline steps",
	}

	cmd.AddCommand(stepListCommand())
	cmd.AddCommand(stepDepsCommand())
	cmd.AddCommand(stepValidateCommand())
	cmd.AddCommand(stepRunCommand())
	return cmd
}

func stepListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, slug := range pipeline.StepSlugs() {
				meta, ok := pipeline.GetStep(slug)
				if !ok {
					continue
				}
				marker := " "
				if meta.Critical {
					marker = "*"
				}
				fmt.Printf("%s %-22s %-34s %s\n", marker, meta.Slug, meta.Name, meta.Description)
			}
			fmt.Println("\n* critical: a failure aborts the pipeline")
			return nil
		},
	}
}

func stepDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <slug>",
		Short: "Print a step's transitive dependencies in execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := pipeline.ResolveDependencies(args[0])
			if err != nil {
				return err
			}
			for i, slug := range order {
				fmt.Printf("%2d. %s\n", i+1, slug)
			}
			return nil
		},
	}
}

func stepValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the step registry for unsatisfiable dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			problems := pipeline.ValidateSteps()
			if len(problems) == 0 {
				fmt.Printf("Step registry ok (%d steps)\n", len(pipeline.StepSlugs()))
				return nil
			}
			for _, p := range problems {
				fmt.Println(p)
			}
			return fmt.Errorf("step registry has %d problems", len(problems))
		},
	}
}

func stepRunCommand() *cobra.Command {
	var (
		adwID   string
		issueID int64
	)

	cmd := &cobra.Command{
		Use:   "run <step>",
		Short: "Execute one step against an existing workflow run",
		Long: `Run executes a single step by slug or name inside the named workflow
run's artifact directory. Steps with dependencies expect earlier steps'
artifacts to be present already.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if adwID == "" {
				return fmt.Errorf("--adw-id is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := slog.Default()
			opts := []pipeline.RunnerOption{pipeline.WithRunnerLogger(logger)}
			if store, err := openIssueStore(ctx, cfg, logger); err == nil {
				defer store.Close()
				opts = append(opts, pipeline.WithIssueStore(store))
			} else {
				logger.Debug("Running without an issue store", "error", err)
			}

			workflowType := pipeline.WorkflowMain
			if artifact.IsPatchWorkflow(adwID) {
				workflowType = pipeline.WorkflowPatch
			}

			runner := pipeline.NewRunner(cfg, opts...)
			ok, err := runner.RunSingle(ctx, pipeline.RunParams{
				ADWID:        adwID,
				WorkflowType: workflowType,
				IssueID:      issueID,
			}, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("step %s failed", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adwID, "adw-id", "", "Workflow run identifier (required)")
	cmd.Flags().Int64Var(&issueID, "issue", 0, "Issue id for steps that read or comment on the issue")

	return cmd
}
