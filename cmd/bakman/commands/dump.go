package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/cli"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump [CONFIGURATION]",
	Short: "Show a configuration's steps in detail",
	Long: `Dump one configuration: its disk, mount root, common steps, and the
steps of every part, including the exact rsync command lines the run
command would execute. Without a configuration name, an interactive
picker is shown.`,
	Example: `  # Dump a named configuration
  bakman dump bakdisk5

  # Pick one interactively
  bakman dump`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	reg, _, err := loadRegistry()
	if err != nil {
		return err
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	} else {
		name, err = pickConfiguration(reg)
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
	}
	cfg, err := getConfiguration(reg, name)
	if err != nil {
		return err
	}
	env := &step.Env{Sys: system.NewHost(logger), Opts: stepOptions(), Log: logger}
	return dumpConfiguration(os.Stdout, env, cfg)
}

// pickConfiguration lets the user fuzzy-pick a configuration. An aborted
// picker returns an empty name and no error.
func pickConfiguration(reg *backup.Registry) (string, error) {
	all := reg.All()
	if len(all) == 0 {
		return "", errors.New("no configurations defined")
	}

	idx, err := fuzzyfinder.Find(
		all,
		func(i int) string {
			return fmt.Sprintf("%s: %s", all[i].Name(), all[i].Description())
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			c := all[i]
			return fmt.Sprintf("Name: %s\nDisk: %s\nMount root: %s\nParts: %s\n\nDescription:\n%s",
				c.Name(),
				c.Disk(),
				c.MountRoot(),
				strings.Join(c.PartNames(), ", "),
				c.Description(),
			)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", errors.Wrap(err, "picking configuration")
	}
	return all[idx].Name(), nil
}

func dumpConfiguration(w io.Writer, env *step.Env, cfg *backup.Configuration) error {
	fmt.Fprintf(w, "Configuration %s %s\n", cfg.Name(), cli.Mark(cfg.Available(env)))
	if cfg.Description() != "" {
		fmt.Fprintf(w, "  %s\n", cfg.Description())
	}
	if cfg.Disk() != "" {
		device, err := cfg.Device(step.WholeDisk())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  disk:       %s (%s)\n", cfg.Disk(), device)
	}
	fmt.Fprintf(w, "  mount root: %s\n", cfg.MountRoot())

	if len(cfg.Common()) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  common steps:")
		dumpSteps(w, env, cfg.Common())
	}
	for _, p := range cfg.Parts() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  part %s %s\n", p.Name(), cli.Mark(cfg.PartAvailable(env, p)))
		dumpSteps(w, env, p.Steps())
	}
	return nil
}

// dumpSteps renders one step per line, indenting Describe output that
// spans multiple lines (archive steps list one command per source).
func dumpSteps(w io.Writer, env *step.Env, steps []step.Step) {
	for _, s := range steps {
		text := s.Describe(env)
		prefix := "    "
		if s.KeepAlive() {
			text = "[keep-alive] " + text
		}
		fmt.Fprintf(w, "%s%s\n", prefix, strings.ReplaceAll(text, "\n", "\n"+prefix+"  "))
	}
}
