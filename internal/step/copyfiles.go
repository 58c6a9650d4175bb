package step

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

const (
	markerPrefix = "LASTUPDATED-"
	markerSuffix = ".TIMESTAMP"
)

// CopyFiles copies individual files into a destination directory and
// rewrites a dated marker file there, so a glance at the directory shows
// when it was last refreshed.
type CopyFiles struct {
	base
	files []string
	dest  string
}

// NewCopyFiles returns a copy step for files into dest.
func NewCopyFiles(files []string, dest string) *CopyFiles {
	return &CopyFiles{base: newBase(KindCopyFiles), files: files, dest: dest}
}

// Available requires every source file and the destination directory.
func (c *CopyFiles) Available(env *Env) bool {
	for _, f := range c.files {
		if !env.Sys.PathExists(f) {
			return false
		}
	}
	return env.Sys.PathExists(c.dest)
}

// Run copies best effort: a failed file is logged and the remaining files
// are still copied. Only a failure to write the new marker is returned.
func (c *CopyFiles) Run(ctx context.Context, env *Env) error {
	dry := env.Opts.DryRun
	for _, f := range c.files {
		cmd := system.Command{
			Argv:   []string{"cp", "-f", "--preserve=mode,timestamps", f, c.dest},
			DryRun: dry,
		}
		if err := env.Sys.Run(ctx, cmd); err != nil {
			env.Log.Error("copy failed", "file", f, "error", err)
		}
	}
	if stale := env.Sys.Glob(filepath.Join(c.dest, markerPrefix+"*"+markerSuffix)); len(stale) > 0 {
		argv := append([]string{"rm", "-f"}, stale...)
		if err := env.Sys.Run(ctx, system.Command{Argv: argv, DryRun: dry}); err != nil {
			env.Log.Warn("removing old timestamp marker failed", "error", err)
		}
	}
	marker := filepath.Join(c.dest, markerPrefix+env.Sys.Now().Format("Jan-02-2006")+markerSuffix)
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"touch", marker}, DryRun: dry}); err != nil {
		return errors.Wrap(err, "writing timestamp marker")
	}
	return nil
}

func (c *CopyFiles) Describe(*Env) string {
	return fmt.Sprintf("copy %d file(s) to %s", len(c.files), c.dest)
}
