package config

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/paths"
)

// AppName is the application name used for settings file naming and the
// environment variable prefix.
const AppName = "bakman"

// Settings are the tool-level knobs read from the optional settings file,
// the environment (BAKMAN_*), or built-in defaults. They seed the defaults
// of the corresponding command-line flags; flags win.
type Settings struct {
	// Definitions is the backup definitions file to load. Empty means
	// search the standard locations.
	Definitions string `mapstructure:"definitions" yaml:"definitions"`

	// MountBase is the directory configuration mount roots live under.
	MountBase string `mapstructure:"mount_base" yaml:"mount_base"`

	// Exclude is the rsync exclude-patterns file applied to archive
	// steps that do not configure their own.
	Exclude string `mapstructure:"exclude" yaml:"exclude"`

	// RunLog is the file completed runs are recorded in.
	RunLog string `mapstructure:"run_log" yaml:"run_log"`

	// Email, when set, is the default recipient of post-run reports.
	Email string `mapstructure:"email" yaml:"email"`
}

// Init initializes Viper with default settings.
// Call this once at application startup before Load.
func Init() {
	// Settings file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(paths.ConfigDir())

	// Environment variable support
	viper.SetEnvPrefix("BAKMAN")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("definitions", "")
	viper.SetDefault("mount_base", backup.DefaultMountBase)
	viper.SetDefault("exclude", paths.ExcludeFile())
	viper.SetDefault("run_log", paths.RunLogFile())
	viper.SetDefault("email", "")
}

// Load reads the settings file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// the built-in defaults when no file is found.
func Load(path string) (*Settings, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// A missing file is only an error when the user named one.
			if path != "" {
				return nil, errors.Wrapf(err, "settings file not found at %s", path)
			}
		} else {
			return nil, errors.Wrap(err, "reading settings file")
		}
	}

	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "unmarshaling settings")
	}

	return &s, nil
}
