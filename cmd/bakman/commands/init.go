package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/config"
	bakerrors "github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/paths"
	"github.com/thoreinstein/bakman/internal/translate"
	"github.com/thoreinstein/bakman/pkg/fileutil"
)

var (
	initFormat string
	initForce  bool
)

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "definitions format: yaml, toml")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing definitions file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter backup definitions file",
	Long: `Write a commented starter definitions file with example configurations:
a plain single-version backup, a multi-version backup, and a backup to
a LUKS-encrypted disk attached on the fly.

The file is written under the bakman config directory and may hold LUKS
key material, so it is created readable by its owner only.`,
	Example: `  # Write the starter file in YAML
  bakman init

  # Write it in TOML instead
  bakman init --format toml

  # Replace an existing file
  bakman init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	name := "definitions." + strings.ToLower(initFormat)
	return runInitWithWriter(os.Stdout, filepath.Join(paths.ConfigDir(), name), initForce)
}

func runInitWithWriter(w io.Writer, target string, force bool) error {
	data := []byte(config.SampleDefinitions)
	switch strings.ToLower(filepath.Ext(target)) {
	case ".yaml":
	case ".toml":
		var err error
		data, err = translate.YAMLToTOML(data)
		if err != nil {
			return errors.Wrap(err, "translating starter definitions")
		}
	default:
		return bakerrors.NewUserError(
			errors.Newf("unsupported format %q", initFormat),
			"Use --format yaml or --format toml")
	}

	if _, err := os.Stat(target); err == nil && !force {
		return bakerrors.NewUserError(
			errors.Newf("definitions file already exists at %s", target),
			"Use --force to overwrite it")
	}
	if err := paths.EnsureDir(filepath.Dir(target), 0); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	// May carry LUKS keys, keep it owner-only
	if err := fileutil.AtomicWriteFile(target, data, 0o600); err != nil {
		return errors.Wrap(err, "writing starter definitions")
	}

	fmt.Fprintf(w, "Wrote starter definitions to %s\n", target)
	fmt.Fprintln(w, "Edit it to describe your disks, then check the result with: bakman list")
	return nil
}
