package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/output"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/reconcile"
)

var launchCmd = &cobra.Command{
	Use:   "launch [instance...]",
	Short: "Launch configured instances",
	Long: `Launch instances defined in the manifest that do not exist yet.

Without arguments every instance in the manifest is considered. Each
instance is launched with its configured resources and mounts. Instances
that exist already or are not in the manifest are skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		r, err := newReconciler(cfg, log)
		if err != nil {
			return err
		}

		report, err := r.Launch(cmd.Context(), m, args)
		printReport(cmd.OutOrStdout(), "launched", report)
		return err
	},
}

var mountCmd = &cobra.Command{
	Use:   "mount [instance...]",
	Short: "Mount configured directories into running instances",
	Long: `Bring the mounts of existing instances in line with the manifest.

Missing mounts are added. A directory mounted at a different guest path is
unmounted and mounted again at the configured path. Host directories that
do not exist are skipped with a warning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest()
		if err != nil {
			return err
		}
		r, err := newReconciler(cfg, log)
		if err != nil {
			return err
		}

		report, err := r.Mount(cmd.Context(), m, args)
		printReport(cmd.OutOrStdout(), "mounted", report)
		return err
	},
}

var (
	stopAll   bool
	deleteAll bool
)

var stopCmd = &cobra.Command{
	Use:   "stop [instance...]",
	Short: "Stop instances",
	Long: `Stop existing instances.

Without arguments every instance in the manifest is considered. With --all
every Multipass instance is stopped and instance names are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var m *manifest.Manifest
		if !stopAll {
			var err error
			if m, err = loadManifest(); err != nil {
				return err
			}
		}
		r, err := newReconciler(cfg, log)
		if err != nil {
			return err
		}

		report, err := r.Stop(cmd.Context(), m, args, stopAll)
		printReport(cmd.OutOrStdout(), "stopped", report)
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [instance...]",
	Short: "Delete instances",
	Long: `Delete existing instances.

Without arguments every instance in the manifest is considered. With --all
every Multipass instance is deleted and instance names are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var m *manifest.Manifest
		if !deleteAll {
			var err error
			if m, err = loadManifest(); err != nil {
				return err
			}
		}
		r, err := newReconciler(cfg, log)
		if err != nil {
			return err
		}

		report, err := r.Delete(cmd.Context(), m, args, deleteAll)
		printReport(cmd.OutOrStdout(), "deleted", report)
		return err
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a manifest in the current directory",
	Long: `Create a manifest with a single default instance.

An existing manifest is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := reconcile.Init(log, cfg.Manifest)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", cfg.Manifest)
		}
		return nil
	},
}

var (
	statusFormat    string
	statusNoHeaders bool
)

var statusCmd = &cobra.Command{
	Use:   "status [instance...]",
	Short: "Show configured and live state of instances",
	Long: `Show each instance's configured resources next to its Multipass state.

Without arguments every instance in the manifest is shown.

Output formats:
  table - Human-readable table (default)
  yaml  - YAML format
  json  - JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statusFormat)
		if err != nil {
			return err
		}

		m, err := loadManifest()
		if err != nil {
			return err
		}
		r, err := newReconciler(cfg, log)
		if err != nil {
			return err
		}

		rows, err := r.Status(cmd.Context(), m, args)
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    format,
			NoHeaders: statusNoHeaders,
		})
		if err != nil {
			return err
		}
		out, err := formatter.FormatInstances(rows)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopAll, "all", false, "stop all instances")
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete all instances")

	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", "table", "output format (table, yaml, json)")
	statusCmd.Flags().BoolVar(&statusNoHeaders, "no-headers", false, "omit table headers")
}

// printReport prints one line per task of a batch.
func printReport(w io.Writer, done string, report *batch.Report) {
	if report == nil {
		return
	}
	for _, res := range report.Results {
		switch {
		case !res.OK():
			fmt.Fprintf(w, "✗ %s: %v\n", res.Task, res.Err)
		case dryRun(res):
			fmt.Fprintf(w, "- %s (dry run)\n", res.Task)
		default:
			fmt.Fprintf(w, "✓ %s %s\n", res.Task, done)
		}
	}
}

func dryRun(res batch.Result) bool {
	for _, step := range res.Steps {
		if !step.DryRun {
			return false
		}
	}
	return len(res.Steps) > 0
}
