// Package settings loads msl's own settings: where the manifest lives, which
// Multipass binary to run and how batches behave.
//
// Settings are resolved in this order, later sources winning:
//  1. built-in defaults
//  2. an optional msl.yaml settings file (working directory, then
//     $XDG_CONFIG_HOME/msl or ~/.config/msl), or the file given with --config
//  3. MSL_* environment variables (MSL_MANIFEST, MSL_POLICY_LAUNCH, ...)
//  4. command-line flags bound with BindFlags
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/logging"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// EnvPrefix prefixes every environment variable read by msl.
const EnvPrefix = "MSL"

// Settings holds msl configuration.
type Settings struct {
	// Manifest is the path of the manifest file.
	Manifest string `mapstructure:"manifest"`

	// Multipass is the Multipass executable.
	Multipass string `mapstructure:"multipass"`

	// Parallel bounds concurrently running commands (0 = unbounded).
	Parallel int `mapstructure:"parallel"`

	// LogLevel is the zerolog level name.
	LogLevel string `mapstructure:"log_level"`

	// DryRun logs commands instead of running them.
	DryRun bool `mapstructure:"dry_run"`

	// CloudInitDir receives rendered user-data files during launch. Empty
	// means the manifest's directory.
	CloudInitDir string `mapstructure:"cloud_init_dir"`

	// Policy is the batch policy per operation.
	Policy PolicySettings `mapstructure:"policy"`
}

// PolicySettings names the batch policy of each reconciling operation.
type PolicySettings struct {
	Launch string `mapstructure:"launch"`
	Mount  string `mapstructure:"mount"`
	Stop   string `mapstructure:"stop"`
	Delete string `mapstructure:"delete"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Manifest:  manifest.DefaultFile,
		Multipass: multipass.DefaultBinary,
		Parallel:  0,
		LogLevel:  logging.DefaultLevel,
		DryRun:    false,
		Policy: PolicySettings{
			Launch: string(batch.Await),
			Mount:  string(batch.BestEffort),
			Stop:   string(batch.BestEffort),
			Delete: string(batch.BestEffort),
		},
	}
}

// Load resolves settings using v. configFile, when set, must exist;
// otherwise a missing settings file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	defaults := Default()
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("multipass", defaults.Multipass)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("cloud_init_dir", defaults.CloudInitDir)
	v.SetDefault("policy.launch", defaults.Policy.Launch)
	v.SetDefault("policy.mount", defaults.Policy.Mount)
	v.SetDefault("policy.stop", defaults.Policy.Stop)
	v.SetDefault("policy.delete", defaults.Policy.Delete)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("msl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	// MSL_MANIFEST, MSL_POLICY_LAUNCH, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// BindFlags binds the persistent command-line flags to their settings keys.
// Flags not present in flags are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	keys := map[string]string{
		"manifest":  "manifest",
		"multipass": "multipass",
		"parallel":  "parallel",
		"log-level": "log_level",
		"dry-run":   "dry_run",
	}
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", flag, err)
		}
	}
	return nil
}

// Validate checks settings values.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Manifest) == "" {
		return fmt.Errorf("manifest path cannot be empty")
	}
	if strings.TrimSpace(s.Multipass) == "" {
		return fmt.Errorf("multipass executable cannot be empty")
	}
	if s.Parallel < 0 {
		return fmt.Errorf("parallel must be >= 0, got %d", s.Parallel)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}

	for op, value := range map[string]string{
		"launch": s.Policy.Launch,
		"mount":  s.Policy.Mount,
		"stop":   s.Policy.Stop,
		"delete": s.Policy.Delete,
	} {
		if _, err := batch.ParsePolicy(value); err != nil {
			return fmt.Errorf("policy.%s: %w", op, err)
		}
	}

	return nil
}

// UserDataDir returns the directory for rendered cloud-init user-data.
//
// Multipass on Linux is a confined snap with a private /tmp, so the files
// are written next to the manifest unless cloud_init_dir says otherwise.
func (s *Settings) UserDataDir() string {
	if s.CloudInitDir != "" {
		return s.CloudInitDir
	}
	dir := filepath.Dir(s.Manifest)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// configDir returns the platform settings directory for msl.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "msl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "msl"), nil
}
