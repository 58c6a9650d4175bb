package step

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// stampName is touched at the destination after every archive run.
const stampName = "RSARCHIVE.TIMESTAMP"

// ArchiveSpec configures an [Archive] step.
type ArchiveSpec struct {
	// Dest is the subdirectory under the mount point that receives the
	// archive. Empty means the mount point itself.
	Dest string

	// Sources are the directories to synchronize. The source "/" is
	// archived into a "root" subdirectory of the destination.
	Sources []string

	// Versioned enables hard-link snapshots: each sync writes into
	// generation 0, hard-linking unchanged files against generation 1.
	// Rotation of the generations is left to a separate rotate step.
	Versioned bool

	// Keep, when positive, enables Versioned and additionally rotates
	// the generations in-step before syncing.
	Keep int

	// Options are appended to the primary rsync flag set.
	Options string

	// Args overrides the primary rsync flag set. Rarely needed.
	Args string

	// Excludes become --exclude patterns; ExcludeFile becomes
	// --exclude-from. When ExcludeFile is empty, the run options'
	// default exclude file applies.
	Excludes    []string
	ExcludeFile string

	// MountPoint overrides the configuration's mount root.
	MountPoint string
}

// Archive synchronizes multiple source directories into one destination,
// optionally keeping hard-linked generations of previous runs.
type Archive struct {
	base
	dest        string
	sources     []string
	versioned   bool
	keep        int
	options     string
	args        string
	excludes    []string
	excludeFile string

	path     string // destination base, resolved at bind
	linkPath string // generation 1, versioned only
	dstPath  string // sync target: generation 0 when versioned
}

// NewArchive returns an archive step for spec.
func NewArchive(spec ArchiveSpec) *Archive {
	a := &Archive{
		base:        newBase(KindArchive),
		dest:        spec.Dest,
		sources:     spec.Sources,
		versioned:   spec.Versioned,
		keep:        spec.Keep,
		options:     spec.Options,
		args:        spec.Args,
		excludes:    spec.Excludes,
		excludeFile: spec.ExcludeFile,
	}
	a.point = spec.MountPoint
	if a.keep < 0 {
		a.keep = 0
	}
	if a.keep > 0 {
		a.versioned = true
	}
	if a.args == "" {
		a.args = defaultRsyncArgs
	}
	return a
}

func (a *Archive) Bind(owner Owner) error {
	if err := a.base.Bind(owner); err != nil {
		return err
	}
	if a.dest != "" {
		a.path = filepath.Join(a.mountPoint(), a.dest)
	} else {
		a.path = a.mountPoint()
	}
	if a.versioned {
		a.linkPath = filepath.Join(a.path, "1")
		a.dstPath = filepath.Join(a.path, "0")
	} else {
		a.dstPath = a.path
	}
	return nil
}

func (a *Archive) argv(src string, env *Env) []string {
	argv := append([]string{"rsync"}, strings.Fields(a.args)...)
	if a.versioned {
		link := a.linkPath
		if src == "/" {
			link = filepath.Join(a.linkPath, "root")
		}
		argv = append(argv, "--link-dest", link)
	}
	if a.options != "" {
		argv = append(argv, strings.Fields(a.options)...)
	}
	if env.Opts.RsyncVerbose {
		argv = append(argv, "-v")
	}
	if env.Opts.RsyncDryRun {
		argv = append(argv, "-n")
		if !env.Opts.RsyncVerbose {
			argv = append(argv, "-v")
		}
	}
	for _, e := range a.excludes {
		argv = append(argv, "--exclude="+e)
	}
	if ef := a.effectiveExcludeFile(env); ef != "" {
		argv = append(argv, "--exclude-from="+ef)
	}
	dst := a.dstPath
	if src == "/" {
		dst = filepath.Join(a.dstPath, "root")
	}
	return append(argv, src, dst)
}

func (a *Archive) effectiveExcludeFile(env *Env) string {
	if a.excludeFile != "" {
		return a.excludeFile
	}
	return env.Opts.ExcludeFile
}

// Available requires the destination to be an actually-mounted path and
// every source to have content.
func (a *Archive) Available(env *Env) bool {
	mp := a.mountPoint()
	if !env.Sys.PathExists(mp) || !env.Sys.IsMountPoint(mp) {
		return false
	}
	for _, src := range a.sources {
		if !env.Sys.DirNonEmpty(src) {
			return false
		}
	}
	return true
}

// Run rotates the generations when configured, then syncs each source in
// turn. An empty source is skipped with a warning; a failed sync is logged
// and the remaining sources still run. An unsafe rotation path aborts the
// whole step, including the sync, so generation 0 is never overwritten
// without its history shifting first.
func (a *Archive) Run(ctx context.Context, env *Env) error {
	mp := a.mountPoint()
	if !env.Sys.IsMountPoint(mp) {
		return errors.Newf("destination %s is not mounted", mp)
	}
	dry := env.Opts.DryRun
	if !env.Sys.PathExists(a.dstPath) {
		cmd := system.Command{Argv: []string{"mkdir", "-p", a.dstPath}, DryRun: dry}
		if err := env.Sys.Run(ctx, cmd); err != nil {
			return errors.Wrapf(err, "creating destination %s", a.dstPath)
		}
	}
	if a.keep > 0 {
		env.Log.Info("rotating generations", "path", a.path, "keep", a.keep)
		if err := shiftGenerations(ctx, env, a.path, a.keep); err != nil {
			return err
		}
	}
	for _, src := range a.sources {
		if !env.Sys.DirNonEmpty(src) {
			env.Log.Warn("no files found, skipping source", "source", src)
			continue
		}
		env.Log.Info("starting rsync", "source", src)
		cmd := system.Command{Argv: a.argv(src, env), Stream: true, DryRun: dry}
		if err := env.Sys.Run(ctx, cmd); err != nil {
			env.Log.Error("rsync failed", "source", src, "error", err)
		}
	}
	stamp := filepath.Join(a.stampPath(), stampName)
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"touch", stamp}, DryRun: dry}); err != nil {
		return errors.Wrap(err, "writing archive timestamp")
	}
	return nil
}

// stampPath is the destination directory, except for the bare
// single-source layout where rsync creates a subdirectory named after the
// source: the stamp then belongs inside that subdirectory.
func (a *Archive) stampPath() string {
	if a.dest == "" && len(a.sources) == 1 && !strings.HasSuffix(a.sources[0], "/") {
		return filepath.Join(a.dstPath, filepath.Base(a.sources[0]))
	}
	return a.dstPath
}

func (a *Archive) Describe(env *Env) string {
	var b strings.Builder
	if a.keep > 0 {
		fmt.Fprintf(&b, "archive %s (rotate, keep %d generations)", strings.Join(a.sources, " "), a.keep)
	} else {
		fmt.Fprintf(&b, "archive %s", strings.Join(a.sources, " "))
	}
	for _, src := range a.sources {
		mark := " "
		if env.Sys.DirNonEmpty(src) {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n%s %s", mark, strings.Join(a.argv(src, env), " "))
	}
	return b.String()
}
