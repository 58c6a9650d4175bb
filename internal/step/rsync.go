package step

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// defaultRsyncArgs is the primary flag set for rsync-based steps: archive
// mode confined to one filesystem, preserving hard links, sparse files,
// ACLs, and xattrs, deleting excluded files on the destination.
const defaultRsyncArgs = "-axHSAX --delete-excluded"

// Rsync synchronizes a single top-level directory into the configuration's
// mount point. The source name "root" means the filesystem root.
type Rsync struct {
	base
	name    string // destination component
	src     string
	options string
	args    string
}

// NewRsync returns an rsync step for the directory /<source>/, synced into
// <mountPoint>/<source>. options are appended to the primary flag set.
func NewRsync(source, options string) *Rsync {
	src := "/" + source + "/"
	if source == "root" {
		src = "/"
	}
	return &Rsync{
		base:    newBase(KindRsync),
		name:    strings.ReplaceAll(source, "/", "-"),
		src:     src,
		options: options,
		args:    defaultRsyncArgs,
	}
}

// SetArgs overrides the primary rsync flag set. Rarely needed.
func (r *Rsync) SetArgs(args string) { r.args = args }

func (r *Rsync) argv(env *Env) []string {
	argv := append([]string{"rsync"}, strings.Fields(r.args)...)
	if env.Opts.RsyncVerbose {
		argv = append(argv, "-v")
	}
	if env.Opts.RsyncDryRun {
		argv = append(argv, "-n")
		if !env.Opts.RsyncVerbose {
			argv = append(argv, "-v")
		}
	}
	if r.options != "" {
		argv = append(argv, strings.Fields(r.options)...)
	}
	return append(argv, r.src, filepath.Join(r.mountPoint(), r.name))
}

func (r *Rsync) Available(env *Env) bool {
	return env.Sys.DirNonEmpty(r.src)
}

func (r *Rsync) Run(ctx context.Context, env *Env) error {
	if !env.Sys.DirNonEmpty(r.src) {
		env.Log.Warn("no files found, skipping rsync", "source", r.src)
		return nil
	}
	cmd := system.Command{Argv: r.argv(env), Stream: true, DryRun: env.Opts.DryRun}
	if err := env.Sys.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, "rsync of %s", r.src)
	}
	return nil
}

func (r *Rsync) Describe(env *Env) string {
	return strings.Join(r.argv(env), " ")
}
