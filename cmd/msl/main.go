package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/logging"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/reconcile"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/settings"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	// Global flags
	configFile string

	// Resolved in PersistentPreRunE
	cfg *settings.Settings
	log = zerolog.Nop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "msl",
	Short: "msl - Multipass Subsystem Linux",
	Long: `msl manages groups of Multipass instances from a YAML manifest.

The manifest (multipass.yaml by default) declares instances with their
resources and mounts. msl compares it with what Multipass reports and runs
the launch, mount, stop and delete commands needed to match it.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := settings.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}

		s, err := settings.Load(v, configFile)
		if err != nil {
			return err
		}

		logger, err := logging.New(os.Stderr, s.LogLevel)
		if err != nil {
			return err
		}

		cfg = s
		log = logger
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "settings file (default: msl.yaml in the working directory or ~/.config/msl)")
	flags.StringP("manifest", "f", manifest.DefaultFile, "manifest file")
	flags.String("multipass", multipass.DefaultBinary, "Multipass executable")
	flags.String("log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	flags.Bool("dry-run", false, "log the commands that would run instead of running them")
	flags.Int("parallel", 0, "maximum number of concurrent Multipass commands (0 = unlimited)")

	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}

// newReconciler wires the Multipass client and batch executor from settings.
func newReconciler(s *settings.Settings, log zerolog.Logger) (*reconcile.Reconciler, error) {
	policies, err := newPolicies(s.Policy)
	if err != nil {
		return nil, err
	}

	client := multipass.NewClient(s.Multipass, batch.ExecRunner{})

	executor := batch.NewExecutor(s.Multipass, log)
	executor.Parallel = s.Parallel
	executor.DryRun = s.DryRun

	r := reconcile.New(client, executor, log)
	r.Policies = policies
	r.CloudInitDir = s.UserDataDir()
	return r, nil
}

// newPolicies converts policy settings into batch policies.
func newPolicies(p settings.PolicySettings) (reconcile.Policies, error) {
	var (
		policies reconcile.Policies
		err      error
	)
	if policies.Launch, err = batch.ParsePolicy(p.Launch); err != nil {
		return policies, fmt.Errorf("policy.launch: %w", err)
	}
	if policies.Mount, err = batch.ParsePolicy(p.Mount); err != nil {
		return policies, fmt.Errorf("policy.mount: %w", err)
	}
	if policies.Stop, err = batch.ParsePolicy(p.Stop); err != nil {
		return policies, fmt.Errorf("policy.stop: %w", err)
	}
	if policies.Delete, err = batch.ParsePolicy(p.Delete); err != nil {
		return policies, fmt.Errorf("policy.delete: %w", err)
	}
	return policies, nil
}

// loadManifest reads the configured manifest. A missing manifest is returned
// as manifest.ErrNotFound with a hint to run init.
func loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.Manifest).Strs("instances", m.Names()).Msg("loaded manifest")
	return m, nil
}
