package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/adw/artifact"
	"github.com/c360studio/adw/config"
	"github.com/spf13/cobra"
)

func artifactCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect workflow artifacts",
		Long: `Artifact subcommands operate on the JSON artifacts a workflow run
writes under the data root. Patch workflows resolve shared artifact
types from their parent run.`,
	}

	cmd.AddCommand(artifactListCommand())
	cmd.AddCommand(artifactShowCommand())
	cmd.AddCommand(artifactDeleteCommand())
	cmd.AddCommand(artifactTypesCommand())
	cmd.AddCommand(artifactPathCommand())
	cmd.AddCommand(artifactWatchCommand())
	return cmd
}

func artifactListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <adw-id>",
		Short: "List artifacts written by a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openExistingStore(args[0])
			if err != nil {
				return err
			}
			types, err := store.List()
			if err != nil {
				return err
			}
			if len(types) == 0 {
				fmt.Printf("No artifacts in workflow %s\n", args[0])
				return nil
			}
			for _, t := range types {
				info, err := store.Stat(t)
				if err != nil {
					fmt.Printf("%-22s (unreadable: %v)\n", t, err)
					continue
				}
				fmt.Printf("%-22s %8d bytes  %s\n", t, info.Size, info.ModTime.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func artifactShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <adw-id> <type>",
		Short: "Print one artifact as indented JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := artifact.ParseType(args[1])
			if err != nil {
				return err
			}
			store, err := openExistingStore(args[0])
			if err != nil {
				return err
			}
			a, err := store.Read(t)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func artifactDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <adw-id> <type>",
		Short: "Delete one artifact from a workflow run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := artifact.ParseType(args[1])
			if err != nil {
				return err
			}
			store, err := openExistingStore(args[0])
			if err != nil {
				return err
			}
			existed, err := store.Delete(t)
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("no %s artifact in workflow %s", t, args[0])
			}
			fmt.Printf("Deleted %s from workflow %s\n", t, args[0])
			return nil
		},
	}
}

func artifactTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List all known artifact types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range artifact.AllTypes() {
				var attrs []string
				if t.Shared() {
					attrs = append(attrs, "shared")
				}
				if t.PatchSpecific() {
					attrs = append(attrs, "patch")
				}
				fmt.Printf("%-22s %s\n", t, strings.Join(attrs, ", "))
			}
			return nil
		},
	}
}

func artifactPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <adw-id> [type]",
		Short: "Print the workflow directory or one artifact's file path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openExistingStore(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Println(store.Dir())
				return nil
			}
			t, err := artifact.ParseType(args[1])
			if err != nil {
				return err
			}
			fmt.Println(filepath.Join(store.Dir(), t.Filename()))
			return nil
		},
	}
}

func artifactWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <adw-id>",
		Short: "Follow a workflow run's artifact writes live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Watching a run that has not started yet is the common case,
			// so the directory is created rather than required.
			store, err := openStore(cfg, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			w, err := artifact.NewWatcher(store.Dir(), slog.Default())
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Printf("Watching %s (interrupt to stop)\n", store.Dir())
			for ev := range w.Events() {
				switch ev.Op {
				case artifact.WatchOpRemove:
					fmt.Printf("%s  %-22s removed\n", ev.ModTime.Format(time.TimeOnly), ev.Type)
				default:
					fmt.Printf("%s  %-22s %d bytes\n", ev.ModTime.Format(time.TimeOnly), ev.Type, ev.Size)
				}
			}
			if dropped := w.DroppedEvents(); dropped > 0 {
				fmt.Printf("Dropped %d events\n", dropped)
			}
			return nil
		},
	}
}

// openStore opens a workflow's artifact store, threading the parent
// through for patch runs the same way the pipeline runner does.
func openStore(cfg *config.Config, adwID string) (*artifact.Store, error) {
	opts := []artifact.Option{artifact.WithLogger(slog.Default())}
	if artifact.IsPatchWorkflow(adwID) {
		if parent := artifact.ParentWorkflowID(adwID); parent != "" {
			if _, err := os.Stat(filepath.Join(cfg.Data.Root, artifact.WorkflowsDir, parent)); err == nil {
				opts = append(opts, artifact.WithParent(parent))
			}
		}
	}
	return artifact.Open(cfg.Data.Root, adwID, opts...)
}

// openExistingStore opens a store for inspection only, rejecting runs
// that have no workflow directory instead of creating one.
func openExistingStore(adwID string) (*artifact.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(cfg.Data.Root, artifact.WorkflowsDir, adwID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("no workflow directory for %s under %s", adwID, cfg.Data.Root)
	}
	return openStore(cfg, adwID)
}
