package commands

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/cli"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [CONFIGURATION]",
	Short: "List backup configurations or the parts of one",
	Long: `List the configurations declared in the definitions file, or, given a
configuration name, its parts. A * marks a configuration or part whose
devices and sources are currently present.`,
	Example: `  # List all configurations
  bakman list

  # List the parts of one configuration
  bakman list bakdisk5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	env := &step.Env{Sys: system.NewHost(logger), Opts: stepOptions(), Log: logger}
	return runListWithWriter(os.Stdout, env, reg, path, args)
}

func runListWithWriter(w io.Writer, env *step.Env, reg *backup.Registry, path string, args []string) error {
	if len(args) == 1 {
		return listParts(w, env, reg, args[0])
	}
	return listConfigurations(w, env, reg, path)
}

func listConfigurations(w io.Writer, env *step.Env, reg *backup.Registry, path string) error {
	fmt.Fprintf(w, "Definitions: %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backup configurations (* means configuration is available):")
	for _, cfg := range reg.All() {
		fmt.Fprintf(w, "  %s  %-15s  %s\n", cli.Mark(cfg.Available(env)), cfg.Name(), cfg.Description())
	}
	if reg.Len() == 0 {
		fmt.Fprintln(w, "  (none defined)")
	}
	return nil
}

func listParts(w io.Writer, env *step.Env, reg *backup.Registry, name string) error {
	cfg, err := getConfiguration(reg, name)
	if err != nil {
		return err
	}
	available := cli.PartNames(cfg.AvailableParts(env))
	fmt.Fprintf(w, "Parts in configuration %s (* means part is available):\n", cfg.Name())
	for _, p := range cfg.Parts() {
		fmt.Fprintf(w, "  %s  %s\n", cli.Mark(slices.Contains(available, p.Name())), p.Name())
	}
	return nil
}
