// Package step defines the atomic actions a backup procedure is composed
// of and the environment they execute in.
//
// # Lifecycle
//
// Every step implements the [Step] interface: an availability predicate
// plus three phases. Mount attaches an operating-system resource (a
// filesystem, a mapped LUKS device, an activated volume group), Run moves
// data, Unmount releases the resource. Variants implement only the phases
// that concern them; the rest are no-ops.
//
// Steps are created unbound, then bound once to their owning configuration
// with [Step.Bind]. Binding resolves everything derived from the owner:
// device paths via [DeviceSpec.Resolve], mapper names scoped by the
// configuration name, and mount points under the configuration's mount
// root.
//
// # Identity
//
// Each step carries a process-unique [ID]. The same step instance may be
// referenced by several parts of a configuration (a shared mount, say),
// and execution must attach it exactly once; deduplication therefore works
// on IDs, never on field equality, because two identically-configured
// steps are still two distinct resources.
//
// # Keep-alive
//
// A step flagged keep-alive is skipped by the regular unmount phase and
// released only during finalization, after every selected part has
// finished. This is how a shared encrypted volume stays attached while
// multiple parts sync into it.
//
// # Variants
//
//   - [Mount]: mount/unmount a filesystem, with optional settle delay.
//   - [Luks]: open/close an encrypted volume under a scoped mapper name.
//   - [VolumeGroup]: activate/deactivate an LVM volume group.
//   - [Command]: run a parameterized shell command.
//   - [CopyFiles]: copy files and rewrite a dated marker.
//   - [Rotate]: shift numbered backup generations.
//   - [Rsync]: synchronize one directory into the mount point.
//   - [Archive]: synchronize many sources, optionally with hard-linked
//     generations and built-in rotation.
//
// All operating-system access goes through the [system.System] handed to
// each invocation in [Env], keeping every variant testable against
// [system.Fake].
package step
