package step

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// ErrUnsafeRotation marks a computed deletion path too dangerous to touch:
// the filesystem root, or anything containing a wildcard character. Such a
// path means generation-path construction went wrong, and deleting it
// could take half the machine with it.
var ErrUnsafeRotation = errors.New("unsafe rotation path")

// checkRotationPath rejects deletion paths that fail the safety invariant.
func checkRotationPath(path string) error {
	if path == "/" || strings.ContainsAny(path, "*%?") {
		return errors.Wrapf(ErrUnsafeRotation, "refusing to delete %q", path)
	}
	return nil
}

// shiftGenerations removes generation <keep> under base and renames each
// generation i to i+1 for i from keep-1 down to 0, leaving slot 0 free.
// It stops at the first failed removal or rename: renaming onto a slot
// that failed to vacate would nest directories instead of replacing them.
func shiftGenerations(ctx context.Context, env *Env, base string, keep int) error {
	if keep <= 0 {
		return nil
	}
	oldest := filepath.Join(base, strconv.Itoa(keep))
	if err := checkRotationPath(oldest); err != nil {
		return err
	}
	if env.Sys.PathExists(oldest) {
		cmd := system.Command{Argv: []string{"rm", "-rf", oldest}, Stream: true, DryRun: env.Opts.DryRun}
		if err := env.Sys.Run(ctx, cmd); err != nil {
			return errors.Wrapf(err, "removing oldest generation %s", oldest)
		}
	}
	for i := keep - 1; i >= 0; i-- {
		src := filepath.Join(base, strconv.Itoa(i))
		if !env.Sys.PathExists(src) {
			continue
		}
		dst := filepath.Join(base, strconv.Itoa(i+1))
		cmd := system.Command{Argv: []string{"mv", "-f", src, dst}, Stream: true, DryRun: env.Opts.DryRun}
		if err := env.Sys.Run(ctx, cmd); err != nil {
			return errors.Wrapf(err, "shifting generation %s", src)
		}
	}
	return nil
}

// Rotate shifts numbered backup generations under a destination directory
// so that only the most recent keep generations survive.
type Rotate struct {
	base
	keep int
	dest string

	path string // resolved at bind
}

// NewRotate returns a rotation step keeping keep generations under dest.
// mountPoint, when non-empty, overrides the configuration's mount root.
func NewRotate(keep int, dest, mountPoint string) *Rotate {
	r := &Rotate{base: newBase(KindRotate), keep: keep, dest: dest}
	r.point = mountPoint
	return r
}

func (r *Rotate) Bind(owner Owner) error {
	if err := r.base.Bind(owner); err != nil {
		return err
	}
	r.path = filepath.Join(r.mountPoint(), r.dest)
	return nil
}

func (r *Rotate) Available(env *Env) bool {
	return env.Sys.PathExists(r.path)
}

// Run is a no-op when keeping zero generations.
func (r *Rotate) Run(ctx context.Context, env *Env) error {
	if r.keep <= 0 {
		return nil
	}
	return shiftGenerations(ctx, env, r.path, r.keep)
}

func (r *Rotate) Describe(*Env) string {
	return fmt.Sprintf("rotate %s keeping %d generation(s)", r.path, r.keep)
}
