package commands

import (
	"context"
	"os"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/cli"
	"github.com/thoreinstein/bakman/internal/config"
	"github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/step"
)

// currentSettings returns the loaded tool settings, falling back to the
// built-in defaults when no settings file was loadable.
func currentSettings() *config.Settings {
	if settings == nil {
		return &config.Settings{MountBase: backup.DefaultMountBase}
	}
	return settings
}

// definitionsPath resolves the definitions file for this invocation: the
// -c flag wins, then the settings file, then the standard locations.
func definitionsPath() (string, error) {
	explicit := cfgFile
	if explicit == "" {
		explicit = currentSettings().Definitions
	}
	path, err := config.FindDefinitions(explicit)
	if err != nil {
		return "", errors.NewConfigError(err)
	}
	return path, nil
}

// loadRegistry loads the backup definitions into a registry.
func loadRegistry() (*backup.Registry, string, error) {
	path, err := definitionsPath()
	if err != nil {
		return nil, "", err
	}
	base := mountBase
	if base == "" {
		base = currentSettings().MountBase
	}
	reg, err := config.LoadDefinitions(path, base)
	if err != nil {
		return nil, "", errors.NewUserError(err, "Check "+path)
	}
	return reg, path, nil
}

// getConfiguration looks up name in reg, turning the miss into a user
// error pointing at the listing command.
func getConfiguration(reg *backup.Registry, name string) (*backup.Configuration, error) {
	cfg, err := reg.Get(name)
	if err != nil {
		return nil, errors.NewUserError(err, "Run: bakman list")
	}
	return cfg, nil
}

// stepOptions assembles the run-wide step options from the persistent
// flags and the tool settings. The default exclude-patterns file is
// handed to rsync only when it actually exists; rsync fails hard on a
// missing --exclude-from file.
func stepOptions() step.Options {
	opts := step.Options{
		Verbose:      verbosity > 0,
		DryRun:       dryRun,
		RsyncVerbose: rsyncVerbose,
		RsyncDryRun:  rsyncDryRun,
	}
	if ex := currentSettings().Exclude; ex != "" {
		if _, err := os.Stat(ex); err == nil {
			opts.ExcludeFile = ex
		}
	}
	return opts
}

// executePhases selects parts and drives them through the requested
// phases. It is the shared core of the mount and unmount commands.
func executePhases(ctx context.Context, env *step.Env, reg *backup.Registry, lockDir, name string, requested []string, phases backup.Phases) error {
	cfg, err := getConfiguration(reg, name)
	if err != nil {
		return err
	}
	parts, err := cli.SelectParts(env, cfg, requested, excludeParts)
	if err != nil {
		return errors.NewUserError(err, "Run: bakman list "+name)
	}
	engine := backup.NewEngine(env.Sys, env.Log, backup.WithLockDir(lockDir))
	if err := engine.Execute(ctx, cfg, parts, env.Opts, phases); err != nil {
		return errors.NewExitError(err, errors.ExitSystem)
	}
	return nil
}
