package commands

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/paths"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

func init() {
	rootCmd.AddCommand(mountCmd)
}

var mountCmd = &cobra.Command{
	Use:   "mount CONFIGURATION [PART...]",
	Short: "Mount a configuration's storage without running it",
	Long: `Attach the storage of the named configuration: open encrypted volumes,
activate volume groups, and mount filesystems, for the common steps and
the selected parts. Nothing is synchronized and nothing is released;
use this to inspect a backup disk by hand, and 'bakman unmount' to
release it afterwards. Requires root.`,
	Example: `  # Mount everything the configuration needs
  bakman mount bakdisk5

  # Mount only what the home part needs
  bakman mount bakdisk5 home`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMount,
}

func runMount(cmd *cobra.Command, args []string) error {
	reg, _, err := loadRegistry()
	if err != nil {
		return err
	}
	sys := system.NewHost(logger)
	env := &step.Env{Sys: sys, Opts: stepOptions(), Log: logger}
	return executePhases(cmd.Context(), env, reg,
		paths.LockDir(sys.EUID() == 0), args[0], args[1:], backup.PhasesMount)
}
