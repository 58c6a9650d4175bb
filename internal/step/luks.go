package step

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// Luks opens an encrypted volume under a mapper name scoped by the owning
// configuration, so two configurations can use the same logical name
// without colliding in /dev/mapper.
type Luks struct {
	base
	name    string
	spec    DeviceSpec
	key     string
	keyFile string

	device string // resolved at bind
	mapper string // <configuration>-<name>, set at bind
}

// NewLuks returns a LUKS attach step. The key is taken from keyFile when
// set, otherwise key is used literally. Key material is piped to
// cryptsetup over stdin and never appears in argv or logs.
func NewLuks(name string, device DeviceSpec, key, keyFile string) *Luks {
	return &Luks{
		base:    newBase(KindLuks),
		name:    name,
		spec:    device,
		key:     key,
		keyFile: keyFile,
		mapper:  "bakman-" + name,
	}
}

func (l *Luks) Bind(owner Owner) error {
	if err := l.base.Bind(owner); err != nil {
		return err
	}
	device, err := owner.Device(l.spec)
	if err != nil {
		return errors.Wrap(err, "resolving LUKS device")
	}
	l.device = device
	l.mapper = owner.Name() + "-" + l.name
	return nil
}

func (l *Luks) mapperPath() string { return "/dev/mapper/" + l.mapper }

// Available requires both the key material and the underlying device.
func (l *Luks) Available(env *Env) bool {
	hasKey := l.key != "" || (l.keyFile != "" && env.Sys.PathExists(l.keyFile))
	return hasKey && env.Sys.PathExists(l.device)
}

func (l *Luks) Mount(ctx context.Context, env *Env) error {
	key := l.key
	if l.keyFile != "" {
		raw, err := env.Sys.ReadFile(l.keyFile)
		if err != nil {
			return errors.Wrapf(err, "reading key file for %s", l.mapper)
		}
		key = strings.TrimSpace(string(raw))
	}
	cmd := system.Command{
		Argv:  []string{"cryptsetup", "luksOpen", l.device, l.mapper},
		Input: key + "\n",
	}
	if err := env.Sys.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, "opening LUKS device %s", l.mapper)
	}
	if !env.Sys.PathExists(l.mapperPath()) {
		return errors.Newf("LUKS device %s did not appear", l.mapperPath())
	}
	return nil
}

func (l *Luks) Unmount(ctx context.Context, env *Env) error {
	if err := env.Sys.Run(ctx, system.Command{Argv: []string{"cryptsetup", "luksClose", l.mapper}}); err != nil {
		return errors.Wrapf(err, "closing LUKS device %s", l.mapper)
	}
	return nil
}

func (l *Luks) Describe(*Env) string {
	return fmt.Sprintf("luks %s as %s", l.device, l.mapperPath())
}
