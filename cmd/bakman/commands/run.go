package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/cli"
	"github.com/thoreinstein/bakman/internal/cli/prompt"
	bakerrors "github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/notify"
	"github.com/thoreinstein/bakman/internal/paths"
	"github.com/thoreinstein/bakman/internal/runlog"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

// runEmail holds the value of the --email flag.
var runEmail string

func init() {
	runCmd.Flags().StringVar(&runEmail, "email", "",
		"mail a post-run report to this local user")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run CONFIGURATION [PART...]",
	Short: "Run a backup: mount, synchronize, unmount",
	Long: `Run the named configuration: mount its common steps and the selected
parts, execute every data-movement step, then release everything in
reverse order, keep-alive steps last.

Without part arguments every available part runs. Parts whose devices
or sources are missing are skipped with a warning; naming an undefined
part is an error. Requires root.

Unless --batch is given, the configuration is dumped and a confirmation
is asked before anything is mounted. Each completed run appends a dated
line to the run log (skipped under --dry-run).`,
	Example: `  # Run every available part, with confirmation
  bakman run bakdisk5

  # Run two parts non-interactively and mail a report
  bakman run bakdisk5 system home --batch --email jb

  # Show what rsync would do without copying anything
  bakman run bakdisk5 --batch --rsync-dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	reg, _, err := loadRegistry()
	if err != nil {
		return err
	}
	sys := system.NewHost(logger)
	env := &step.Env{Sys: sys, Opts: stepOptions(), Log: logger}
	email := runEmail
	if email == "" {
		email = currentSettings().Email
	}
	return runBackup(cmd.Context(), os.Stdout, env, reg,
		paths.LockDir(sys.EUID() == 0), args[0], args[1:], email, prompt.New())
}

func runBackup(ctx context.Context, w io.Writer, env *step.Env, reg *backup.Registry, lockDir, name string, requested []string, email string, confirm *prompt.Confirmer) error {
	cfg, err := getConfiguration(reg, name)
	if err != nil {
		return err
	}
	parts, err := cli.SelectParts(env, cfg, requested, excludeParts)
	if err != nil {
		return bakerrors.NewUserError(err, "Run: bakman list "+name)
	}

	if !batch {
		if len(parts) == 0 {
			return bakerrors.NewUserError(
				errors.Newf("nothing to run for %s", name),
				"Attach the backup disk, or run: bakman list "+name)
		}
		if err := dumpConfiguration(w, env, cfg); err != nil {
			return err
		}
		fmt.Fprintln(w)
		ok, err := confirm.Confirm(fmt.Sprintf("Execute backup of %s with parts %s", name, strings.Join(parts, " ")))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Backup aborted.")
			return nil
		}
	}

	engine := backup.NewEngine(env.Sys, env.Log, backup.WithLockDir(lockDir))
	runErr := engine.Execute(ctx, cfg, parts, env.Opts, backup.PhasesAll)

	if email != "" {
		mailReport(ctx, env, email, name, parts, runErr)
	}
	if runErr != nil {
		return bakerrors.NewSystemError(runErr,
			"Already-mounted resources are left attached; release them with: bakman unmount "+name)
	}

	if len(parts) > 0 && !env.Opts.DryRun {
		entry := runlog.Entry{Time: env.Sys.Now(), Configuration: name, Parts: parts}
		if err := runlog.Append(runLogPath(), entry); err != nil {
			env.Log.Warn("recording run", "error", err)
		}
	}
	return nil
}

// runLogPath returns the run log location from the tool settings, falling
// back to the standard state file.
func runLogPath() string {
	if p := currentSettings().RunLog; p != "" {
		return p
	}
	return paths.RunLogFile()
}

// mailReport delivers the post-run report best effort; a missing MTA must
// not fail a finished backup.
func mailReport(ctx context.Context, env *step.Env, recipient, name string, parts []string, runErr error) {
	status := "done"
	if runErr != nil {
		status = "FAILED"
	}
	body := fmt.Sprintf("configuration: %s\nparts: %s\nfinished: %s\n",
		name, strings.Join(parts, " "), env.Sys.Now().Format("Mon Jan 02 15:04:05 MST 2006"))
	if runErr != nil {
		body += fmt.Sprintf("error: %v\n", runErr)
	}
	report := notify.Report{
		Recipient: recipient,
		Subject:   fmt.Sprintf("bakman: %s %s", name, status),
		Body:      body,
	}
	if err := notify.Send(ctx, env.Sys, report); err != nil {
		env.Log.Warn("mailing report", "error", err)
	}
}
