package commands

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/paths"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

func init() {
	rootCmd.AddCommand(unmountCmd)
}

var unmountCmd = &cobra.Command{
	Use:     "unmount CONFIGURATION [PART...]",
	Aliases: []string{"umount"},
	Short:   "Release a configuration's mounted storage",
	Long: `Release the storage of the named configuration: unmount filesystems,
deactivate volume groups, and close encrypted volumes, in the reverse
of mount order with keep-alive steps released last. Individual release
failures are logged and the remaining steps still get their turn.
Requires root.`,
	Example: `  # Release everything mounted for the configuration
  bakman unmount bakdisk5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnmount,
}

func runUnmount(cmd *cobra.Command, args []string) error {
	reg, _, err := loadRegistry()
	if err != nil {
		return err
	}
	sys := system.NewHost(logger)
	env := &step.Env{Sys: sys, Opts: stepOptions(), Log: logger}
	return executePhases(cmd.Context(), env, reg,
		paths.LockDir(sys.EUID() == 0), args[0], args[1:], backup.PhasesUnmount)
}
