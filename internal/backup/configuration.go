package backup

import (
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/step"
)

// Part is a named, independently selectable step sequence within a
// configuration.
type Part struct {
	name  string
	steps []step.Step
}

// Name returns the part name.
func (p *Part) Name() string { return p.name }

// Steps returns the part's steps in declared order.
func (p *Part) Steps() []step.Step { return p.steps }

// Configuration is a named backup procedure: steps shared by every part,
// plus a sequence of independently selectable parts. Build one by applying
// options and adding parts, then lock it; a locked configuration is
// read-only and safe to hand to the engine.
type Configuration struct {
	name        string
	description string
	diskID      string
	mountBase   string
	common      []step.Step
	parts       []*Part
	locked      bool
}

// Option configures a Configuration.
type Option func(*Configuration)

// WithDescription sets the human-readable description shown by listings.
func WithDescription(desc string) Option {
	return func(c *Configuration) { c.description = desc }
}

// WithDisk sets the disk identifier that partition and whole-disk device
// specifiers resolve against. A configuration without one is considered
// always available.
func WithDisk(id string) Option {
	return func(c *Configuration) { c.diskID = id }
}

// WithMountBase overrides the directory the configuration's mount root
// lives under. An empty value keeps the current base.
func WithMountBase(dir string) Option {
	return func(c *Configuration) {
		if dir != "" {
			c.mountBase = dir
		}
	}
}

// WithCommon sets the steps shared by every part, in attach order.
func WithCommon(steps ...step.Step) Option {
	return func(c *Configuration) { c.common = steps }
}

// New creates a configuration and binds its common steps to it. Binding
// fails when a step's device specifier cannot be resolved, for example a
// partition index on a configuration without a disk identifier.
func New(name string, opts ...Option) (*Configuration, error) {
	c := &Configuration{name: name, mountBase: DefaultMountBase}
	for _, opt := range opts {
		opt(c)
	}
	for _, s := range c.common {
		if err := s.Bind(c); err != nil {
			return nil, errors.Wrapf(err, "binding common step of %s", name)
		}
	}
	return c, nil
}

// Name returns the configuration name.
func (c *Configuration) Name() string { return c.name }

// Description returns the human-readable description.
func (c *Configuration) Description() string { return c.description }

// Disk returns the disk identifier, which may be empty.
func (c *Configuration) Disk() string { return c.diskID }

// MountRoot returns the directory this configuration's backup mounts live
// under: <mountBase>/<name>.
func (c *Configuration) MountRoot() string {
	return filepath.Join(c.mountBase, c.name)
}

// Device resolves spec against the configuration's disk identifier.
func (c *Configuration) Device(spec step.DeviceSpec) (string, error) {
	return spec.Resolve(c.diskID)
}

// AddPart appends a named part and binds its steps. Adding to a locked
// configuration fails with ErrLocked; so does reusing a part name.
func (c *Configuration) AddPart(name string, steps ...step.Step) error {
	if c.locked {
		return errors.Wrapf(ErrLocked, "adding part %s to %s", name, c.name)
	}
	if _, ok := c.Part(name); ok {
		return errors.Newf("part %s declared twice in %s", name, c.name)
	}
	for _, s := range steps {
		if err := s.Bind(c); err != nil {
			return errors.Wrapf(err, "binding step of part %s", name)
		}
	}
	c.parts = append(c.parts, &Part{name: name, steps: steps})
	return nil
}

// Lock marks the configuration fully declared. Further AddPart calls fail.
func (c *Configuration) Lock() { c.locked = true }

// Common returns the shared steps in declared order.
func (c *Configuration) Common() []step.Step { return c.common }

// Parts returns the parts in declared order.
func (c *Configuration) Parts() []*Part { return c.parts }

// Part returns the named part, if defined.
func (c *Configuration) Part(name string) (*Part, bool) {
	for _, p := range c.parts {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// PartNames returns the defined part names in declared order.
func (c *Configuration) PartNames() []string {
	names := make([]string, len(c.parts))
	for i, p := range c.parts {
		names[i] = p.name
	}
	return names
}

// Available reports whether the configuration's disk is attached. Without
// a disk identifier there is nothing to check and the configuration is
// always available.
func (c *Configuration) Available(env *step.Env) bool {
	if c.diskID == "" {
		return true
	}
	device, err := step.WholeDisk().Resolve(c.diskID)
	if err != nil {
		return false
	}
	return env.Sys.PathExists(device)
}

// CommonAvailable reports whether every common step is available.
func (c *Configuration) CommonAvailable(env *step.Env) bool {
	for _, s := range c.common {
		if !s.Available(env) {
			return false
		}
	}
	return true
}

// PartAvailable reports whether every step of p is available.
func (c *Configuration) PartAvailable(env *step.Env, p *Part) bool {
	for _, s := range p.steps {
		if !s.Available(env) {
			return false
		}
	}
	return true
}

// AvailableParts returns the parts whose every step is available. The
// policy is conjunctive and fail-closed: when the disk or any common step
// is missing, no part is available, because every part depends on the
// shared resources being attachable.
func (c *Configuration) AvailableParts(env *step.Env) []*Part {
	if !c.Available(env) || !c.CommonAvailable(env) {
		return nil
	}
	var avail []*Part
	for _, p := range c.parts {
		if c.PartAvailable(env, p) {
			avail = append(avail, p)
		}
	}
	return avail
}

// UniqueSteps returns a transient configuration restricted to the selected
// parts, with every step instance appearing exactly once: walking the
// parts in the given order, an instance already emitted under an earlier
// part, or present among the common steps, is omitted from later parts.
// Identity is the step's ID, never field equality: a step deliberately
// shared across parts is one attachable resource and must be mounted and
// released once, not once per part.
//
// The returned configuration shares the original's step instances and
// resolution context and is already locked.
func (c *Configuration) UniqueSteps(parts []string) (*Configuration, error) {
	u := &Configuration{
		name:        c.name,
		description: c.description,
		diskID:      c.diskID,
		mountBase:   c.mountBase,
		common:      c.common,
		locked:      true,
	}
	seen := make(map[step.ID]bool, len(c.common))
	for _, s := range c.common {
		seen[s.ID()] = true
	}
	for _, name := range parts {
		p, ok := c.Part(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownPart, "%s has no part %q", c.name, name)
		}
		steps := make([]step.Step, 0, len(p.steps))
		for _, s := range p.steps {
			if seen[s.ID()] {
				continue
			}
			seen[s.ID()] = true
			steps = append(steps, s)
		}
		u.parts = append(u.parts, &Part{name: name, steps: steps})
	}
	return u, nil
}
