package step

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// Mount attaches a filesystem under the configuration's mount root.
type Mount struct {
	base
	relPath string
	spec    DeviceSpec
	options string
	settle  time.Duration

	device string // resolved at bind
}

// NewMount returns a mount step. relPath, when non-empty, is appended to
// the configuration's mount root. settle delays the unmount to let slow
// devices flush.
func NewMount(relPath string, device DeviceSpec, options string, settle time.Duration) *Mount {
	return &Mount{
		base:    newBase(KindMount),
		relPath: relPath,
		spec:    device,
		options: options,
		settle:  settle,
	}
}

func (m *Mount) Bind(owner Owner) error {
	if err := m.base.Bind(owner); err != nil {
		return err
	}
	device, err := owner.Device(m.spec)
	if err != nil {
		return errors.Wrap(err, "resolving mount device")
	}
	m.device = device
	return nil
}

// target is the directory this step mounts at.
func (m *Mount) target() string {
	if m.relPath == "" {
		return m.mountPoint()
	}
	return filepath.Join(m.mountPoint(), m.relPath)
}

// Available probes devices under /dev/disk/ directly. Other device paths
// (mapper nodes, volume-group paths) may only appear once an earlier step
// has run, so they are assumed present.
func (m *Mount) Available(env *Env) bool {
	if strings.HasPrefix(m.device, "/dev/disk/") {
		return env.Sys.PathExists(m.device)
	}
	return true
}

func (m *Mount) Mount(ctx context.Context, env *Env) error {
	target := m.target()
	if !env.Sys.PathExists(target) {
		if err := env.Sys.Run(ctx, system.Command{Argv: []string{"mkdir", "-p", target}}); err != nil {
			return errors.Wrapf(err, "creating mount point %s", target)
		}
	}
	argv := []string{"mount"}
	if m.options != "" {
		argv = append(argv, "-o", m.options)
	}
	argv = append(argv, m.device, target)
	if err := env.Sys.Run(ctx, system.Command{Argv: argv}); err != nil {
		return errors.Wrapf(err, "mounting %s at %s", m.device, target)
	}
	return nil
}

func (m *Mount) Unmount(ctx context.Context, env *Env) error {
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"sync"}}); err != nil {
		env.Log.Warn("sync before unmount failed", "error", err)
	}
	if m.settle > 0 {
		env.Log.Debug("waiting for device to settle", "delay", m.settle)
		select {
		case <-time.After(m.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	target := m.target()
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"umount", target}}); err != nil {
		return errors.Wrapf(err, "unmounting %s", target)
	}
	return nil
}

func (m *Mount) Describe(*Env) string {
	s := fmt.Sprintf("mount %s on %s", m.device, m.target())
	if m.options != "" {
		s += fmt.Sprintf(" (options: %s)", m.options)
	}
	return s
}
