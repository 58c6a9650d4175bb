package step

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/thoreinstein/bakman/internal/system"
)

// Kind tags carried by each step variant. They double as the variant keys
// of the definitions file.
const (
	KindMount       = "mount"
	KindLuks        = "luks"
	KindVolumeGroup = "lvm"
	KindCommand     = "command"
	KindCopyFiles   = "copyFiles"
	KindRotate      = "rotate"
	KindRsync       = "rsync"
	KindArchive     = "archive"
)

// ID is a process-unique handle for one step instance. Two steps with
// identical configured fields are still distinct attachable resources, so
// deduplication and diagnostics key on IDs, never on field equality.
type ID uint64

var lastID atomic.Uint64

func nextID() ID { return ID(lastID.Add(1)) }

// Options are the run-wide knobs threaded to every step invocation.
type Options struct {
	// Verbose streams output of command steps instead of capturing it.
	Verbose bool

	// DryRun logs run-phase commands without executing them. Mount and
	// unmount commands always execute.
	DryRun bool

	// RsyncVerbose adds -v to every rsync invocation.
	RsyncVerbose bool

	// RsyncDryRun adds -n (and -v, unless already verbose) to every
	// rsync invocation.
	RsyncDryRun bool

	// ExcludeFile is the default rsync exclude-patterns file for archive
	// steps that do not configure their own.
	ExcludeFile string
}

// Env bundles what a step needs at invocation time: the OS boundary, the
// run options, and the logging sink.
type Env struct {
	Sys  system.System
	Opts Options
	Log  *slog.Logger
}

// Owner is the configuration a step is bound to. Steps use it only for
// name scoping, mount-path derivation, and device resolution.
type Owner interface {
	// Name returns the configuration name.
	Name() string

	// MountRoot returns the directory backup mounts for this
	// configuration live under, typically <mountBase>/<name>.
	MountRoot() string

	// Device resolves a device specifier against the configuration's
	// disk identifier.
	Device(spec DeviceSpec) (string, error)
}

// Step is one atomic action in a backup procedure. Mount attaches the
// resource, Run moves data, Unmount releases the resource; a variant not
// concerned with a phase treats it as a no-op.
type Step interface {
	ID() ID
	Kind() string

	// KeepAlive reports whether the step's release is deferred to the
	// finalize phase so other parts can keep using its resource.
	KeepAlive() bool

	// SetKeepAlive marks the step for deferred release. Set while
	// building a configuration, before the step is used.
	SetKeepAlive(bool)

	// Bind attaches the step to its owning configuration and resolves
	// anything derived from it (device paths, mapper names, mount
	// points). A step is bound exactly once.
	Bind(owner Owner) error

	// Available reports whether the step's prerequisites are present.
	// It must be read-only: it gates execution and feeds listings.
	Available(env *Env) bool

	Mount(ctx context.Context, env *Env) error
	Run(ctx context.Context, env *Env) error
	Unmount(ctx context.Context, env *Env) error

	// Describe renders the step for configuration dumps. The result may
	// span multiple lines.
	Describe(env *Env) string
}

// base carries the identity, keep-alive flag, and owner binding shared by
// all variants. Variants embed it and override the phases they implement.
type base struct {
	id        ID
	kind      string
	keepAlive bool
	owner     Owner

	// point, when non-empty, overrides the owner-derived mount point.
	point string
}

func newBase(kind string) base {
	return base{id: nextID(), kind: kind}
}

func (b *base) ID() ID              { return b.id }
func (b *base) Kind() string        { return b.kind }
func (b *base) KeepAlive() bool     { return b.keepAlive }
func (b *base) SetKeepAlive(v bool) { b.keepAlive = v }

func (b *base) Bind(owner Owner) error {
	b.owner = owner
	return nil
}

// mountPoint returns the explicit override if set, otherwise the owner's
// mount root.
func (b *base) mountPoint() string {
	if b.point != "" {
		return b.point
	}
	if b.owner == nil {
		return ""
	}
	return b.owner.MountRoot()
}

func (b *base) Available(*Env) bool                 { return true }
func (b *base) Mount(context.Context, *Env) error   { return nil }
func (b *base) Run(context.Context, *Env) error     { return nil }
func (b *base) Unmount(context.Context, *Env) error { return nil }
func (b *base) Describe(*Env) string                { return b.kind }
