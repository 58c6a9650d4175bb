// Package commands implements the CLI commands for bakman.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/config"
	"github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/logging"
)

// version is set at build time via ldflags.
// Default to a development version for local builds.
const version = "0.1.0"

// cfgFile holds the value of the -c/--config flag.
var cfgFile string

// mountBase holds the value of the -m/--mount flag.
var mountBase string

// excludeParts holds the value of the -x/--exclude flag.
var excludeParts []string

// rsyncVerbose holds the value of the -V/--rsync-verbose flag.
var rsyncVerbose bool

// rsyncDryRun holds the value of the -n/--rsync-dry-run flag.
var rsyncDryRun bool

// dryRun holds the value of the --dry-run flag.
var dryRun bool

// batch holds the value of the -b/--batch flag.
var batch bool

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// logger is the process logger, configured once per invocation in
// setupLogging and threaded explicitly to the engine and steps.
var logger = logging.Default()

// settings holds the tool settings loaded during initialization.
var settings *config.Settings

// settingsLoadErr holds any error that occurred during settings loading.
var settingsLoadErr error

func init() {
	cobra.OnInitialize(initSettings)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"path to the backup definitions file (default: standard locations)")
	rootCmd.PersistentFlags().StringVarP(&mountBase, "mount", "m", "",
		"base mount point for backup partitions mounted by bakman (default: /media)")
	rootCmd.PersistentFlags().StringSliceVarP(&excludeParts, "exclude", "x", nil,
		"part(s) to exclude from the run")
	rootCmd.PersistentFlags().BoolVarP(&rsyncVerbose, "rsync-verbose", "V", false,
		"rsync: show files being transferred")
	rootCmd.PersistentFlags().BoolVarP(&rsyncDryRun, "rsync-dry-run", "n", false,
		"rsync: only show what would be done but do not copy anything")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"only log run-phase commands instead of executing them (mount/unmount still execute)")
	rootCmd.PersistentFlags().BoolVarP(&batch, "batch", "b", false,
		"non-interactive mode, skip confirmation prompts")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")

	// Add version flag
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("bakman version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initSettings() {
	config.Init()
	// Capture load errors for later reporting
	settings, settingsLoadErr = config.Load("")
}

var rootCmd = &cobra.Command{
	Use:   "bakman",
	Short: "Configuration-driven backup orchestrator",
	Long: `bakman orchestrates multi-step backups on Linux hosts: it attaches
storage (plain mounts, LUKS volumes, LVM volume groups), synchronizes
data with rsync, and detaches storage again, all driven by named backup
configurations.

A configuration holds steps shared by every part (common steps, e.g.
opening an encrypted volume) plus named parts that can be mounted, run,
and unmounted individually. Configurations are declared in a YAML or
TOML definitions file; run 'bakman init' to write a starter file.

Mounting and unmounting require root.`,
	Example: `  # Write a starter definitions file
  bakman init

  # List configurations (* means available)
  bakman list

  # Inspect one configuration in detail
  bakman dump bakdisk5

  # Run every available part of a configuration
  bakman run bakdisk5

  # Run selected parts without the confirmation prompt
  bakman run bakdisk5 system home --batch

  # Leave everything mounted for inspection
  bakman mount bakdisk5`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging first
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkSettings(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("BAKMAN_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)

	return nil
}

// checkSettings surfaces settings-load failures once logging is up.
func checkSettings(cmd *cobra.Command) error {
	// Help, version, and init work without loadable settings
	switch cmd.Name() {
	case "help", "version", "init":
		return nil
	}
	if settingsLoadErr != nil {
		return errors.NewConfigError(settingsLoadErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
