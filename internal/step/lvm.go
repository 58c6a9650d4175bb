package step

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// VolumeGroup activates an LVM volume group so its logical volumes can be
// mounted by later steps.
type VolumeGroup struct {
	base
	group string
}

// NewVolumeGroup returns an LVM activation step for the named group.
func NewVolumeGroup(group string) *VolumeGroup {
	return &VolumeGroup{base: newBase(KindVolumeGroup), group: group}
}

func (v *VolumeGroup) Mount(ctx context.Context, env *Env) error {
	// Node creation is best effort; activation is what matters.
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"vgscan", "--mknodes"}}); err != nil {
		env.Log.Warn("vgscan failed", "group", v.group, "error", err)
	}
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"vgchange", "-ay", v.group}}); err != nil {
		return errors.Wrapf(err, "activating volume group %s", v.group)
	}
	if !env.Sys.PathExists("/dev/" + v.group) {
		return errors.Newf("volume group %s did not appear under /dev", v.group)
	}
	return nil
}

func (v *VolumeGroup) Unmount(ctx context.Context, env *Env) error {
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"vgchange", "-an", v.group}}); err != nil {
		return errors.Wrapf(err, "deactivating volume group %s", v.group)
	}
	return nil
}

func (v *VolumeGroup) Describe(*Env) string {
	return "volume group " + v.group
}
