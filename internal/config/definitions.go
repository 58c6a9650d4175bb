package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/bakman/internal/backup"
	bakerrors "github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/paths"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/translate"
)

// stepKinds lists the variant keys a step mapping may carry.
var stepKinds = strings.Join([]string{
	step.KindMount, step.KindLuks, step.KindVolumeGroup, step.KindCommand,
	step.KindCopyFiles, step.KindRotate, step.KindRsync, step.KindArchive,
}, "|")

// FindDefinitions returns the definitions file to load. An explicit path
// wins; otherwise the standard candidate locations are tried in order. The
// returned error wraps ErrNoDefinitions when nothing is found.
func FindDefinitions(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrapf(bakerrors.ErrNoDefinitions, "%s", explicit)
		}
		return explicit, nil
	}
	for _, candidate := range paths.DefinitionsCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", bakerrors.ErrNoDefinitions
}

// LoadDefinitions reads the definitions file at path and builds the
// registry of configurations it declares. Files ending in .toml are
// converted to YAML before decoding. mountBase, when non-empty, replaces
// the built-in default for configurations that do not set their own.
func LoadDefinitions(path, mountBase string) (*backup.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading definitions")
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = translate.TOMLToYAML(data)
		if err != nil {
			return nil, errors.Wrapf(err, "translating %s", path)
		}
	}
	reg, err := ParseDefinitions(data, mountBase)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return reg, nil
}

// ParseDefinitions parses YAML definitions data and builds the registry.
// Unknown fields are rejected. An empty document yields an empty registry.
func ParseDefinitions(data []byte, mountBase string) (*backup.Registry, error) {
	var file definitionsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parsing definitions")
	}

	reg := backup.NewRegistry()
	for _, node := range file.Configurations {
		cfg, err := node.build(mountBase)
		if err != nil {
			if node.Name == "" {
				return nil, err
			}
			return nil, errors.Wrapf(err, "configuration %s", node.Name)
		}
		if err := reg.Add(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// definitionsFile is the top-level document.
type definitionsFile struct {
	Configurations []configNode `yaml:"configurations"`
}

type configNode struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Disk        string     `yaml:"disk"`
	MountBase   string     `yaml:"mountBase"`
	Common      []stepNode `yaml:"common"`
	Parts       []partNode `yaml:"parts"`
}

type partNode struct {
	Name  string     `yaml:"name"`
	Steps []stepNode `yaml:"steps"`
}

// stepNode is the step union. Exactly one variant key must be present;
// keepAlive is a sibling of the variant key.
type stepNode struct {
	Mount     *mountNode     `yaml:"mount"`
	Luks      *luksNode      `yaml:"luks"`
	Lvm       *lvmNode       `yaml:"lvm"`
	Command   *commandNode   `yaml:"command"`
	CopyFiles *copyFilesNode `yaml:"copyFiles"`
	Rotate    *rotateNode    `yaml:"rotate"`
	Rsync     *rsyncNode     `yaml:"rsync"`
	Archive   *archiveNode   `yaml:"archive"`

	KeepAlive bool `yaml:"keepAlive"`
}

type mountNode struct {
	RelPath string       `yaml:"relPath"`
	Device  *deviceNode  `yaml:"device"`
	Options string       `yaml:"options"`
	Settle  durationNode `yaml:"settle"`
}

type luksNode struct {
	Name    string      `yaml:"name"`
	Device  *deviceNode `yaml:"device"`
	Key     string      `yaml:"key"`
	KeyFile string      `yaml:"keyFile"`
}

type lvmNode struct {
	Group string `yaml:"group"`
}

type commandNode struct {
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params"`
}

type copyFilesNode struct {
	Files []string `yaml:"files"`
	Dest  string   `yaml:"dest"`
}

type rotateNode struct {
	Keep       int    `yaml:"keep"`
	Dest       string `yaml:"dest"`
	MountPoint string `yaml:"mountPoint"`
}

type rsyncNode struct {
	Source  string `yaml:"source"`
	Options string `yaml:"options"`
	Args    string `yaml:"args"`
}

type archiveNode struct {
	Dest        string   `yaml:"dest"`
	Sources     []string `yaml:"sources"`
	Versioned   bool     `yaml:"versioned"`
	Keep        int      `yaml:"keep"`
	Options     string   `yaml:"options"`
	Args        string   `yaml:"args"`
	Excludes    []string `yaml:"excludes"`
	ExcludeFile string   `yaml:"excludeFile"`
	MountPoint  string   `yaml:"mountPoint"`
}

// deviceNode decodes a device field: an integer is a partition index on
// the configuration's disk, a string is an explicit device path.
type deviceNode struct {
	spec step.DeviceSpec
}

func (d *deviceNode) UnmarshalYAML(value *yaml.Node) error {
	var part int
	if err := value.Decode(&part); err == nil {
		d.spec = step.Partition(part)
		return nil
	}
	var path string
	if err := value.Decode(&path); err != nil {
		return errors.New("device must be a partition number or a device path")
	}
	d.spec = step.DevicePath(path)
	return nil
}

// Spec returns the decoded device. A missing device means the whole disk.
func (d *deviceNode) Spec() step.DeviceSpec {
	if d == nil {
		return step.WholeDisk()
	}
	return d.spec
}

// durationNode decodes a settle delay: a duration string such as "2s", or
// a bare integer number of seconds.
type durationNode struct {
	time.Duration
}

func (d *durationNode) UnmarshalYAML(value *yaml.Node) error {
	var secs int
	if err := value.Decode(&secs); err == nil {
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	var text string
	if err := value.Decode(&text); err != nil {
		return errors.New("settle must be a duration string or a number of seconds")
	}
	dur, err := time.ParseDuration(text)
	if err != nil {
		return errors.Wrap(err, "parsing settle delay")
	}
	d.Duration = dur
	return nil
}

func (n *configNode) build(mountBase string) (*backup.Configuration, error) {
	if n.Name == "" {
		return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "configuration without a name")
	}
	common, err := buildSteps(n.Common)
	if err != nil {
		return nil, errors.Wrap(err, "common steps")
	}
	cfg, err := backup.New(n.Name,
		backup.WithDescription(n.Description),
		backup.WithDisk(n.Disk),
		backup.WithMountBase(mountBase),
		backup.WithMountBase(n.MountBase),
		backup.WithCommon(common...),
	)
	if err != nil {
		return nil, err
	}
	for _, p := range n.Parts {
		if p.Name == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "part without a name")
		}
		steps, err := buildSteps(p.Steps)
		if err != nil {
			return nil, errors.Wrapf(err, "part %s", p.Name)
		}
		if err := cfg.AddPart(p.Name, steps...); err != nil {
			return nil, err
		}
	}
	cfg.Lock()
	return cfg, nil
}

func buildSteps(nodes []stepNode) ([]step.Step, error) {
	steps := make([]step.Step, 0, len(nodes))
	for i, n := range nodes {
		s, err := n.build()
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// build constructs the step a node declares, after checking that exactly
// one variant key is present and that the variant's required fields are
// set. Anything resolved against the owning configuration is left to Bind.
func (n *stepNode) build() (step.Step, error) {
	if c := n.variants(); c != 1 {
		return nil, errors.Wrapf(bakerrors.ErrInvalidConfig,
			"a step needs exactly one of %s, found %d", stepKinds, c)
	}

	var s step.Step
	switch {
	case n.Mount != nil:
		s = step.NewMount(n.Mount.RelPath, n.Mount.Device.Spec(), n.Mount.Options, n.Mount.Settle.Duration)

	case n.Luks != nil:
		if n.Luks.Name == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "luks needs a name")
		}
		s = step.NewLuks(n.Luks.Name, n.Luks.Device.Spec(), n.Luks.Key, n.Luks.KeyFile)

	case n.Lvm != nil:
		if n.Lvm.Group == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "lvm needs a group")
		}
		s = step.NewVolumeGroup(n.Lvm.Group)

	case n.Command != nil:
		if n.Command.Template == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "command needs a template")
		}
		s = step.NewCommand(n.Command.Template, n.Command.Params)

	case n.CopyFiles != nil:
		if len(n.CopyFiles.Files) == 0 || n.CopyFiles.Dest == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "copyFiles needs files and a dest")
		}
		s = step.NewCopyFiles(n.CopyFiles.Files, n.CopyFiles.Dest)

	case n.Rotate != nil:
		if n.Rotate.Keep < 1 {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "rotate needs keep >= 1")
		}
		s = step.NewRotate(n.Rotate.Keep, n.Rotate.Dest, n.Rotate.MountPoint)

	case n.Rsync != nil:
		if n.Rsync.Source == "" {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "rsync needs a source")
		}
		r := step.NewRsync(n.Rsync.Source, n.Rsync.Options)
		if n.Rsync.Args != "" {
			r.SetArgs(n.Rsync.Args)
		}
		s = r

	case n.Archive != nil:
		if len(n.Archive.Sources) == 0 {
			return nil, errors.Wrap(bakerrors.ErrInvalidConfig, "archive needs sources")
		}
		s = step.NewArchive(step.ArchiveSpec{
			Dest:        n.Archive.Dest,
			Sources:     n.Archive.Sources,
			Versioned:   n.Archive.Versioned,
			Keep:        n.Archive.Keep,
			Options:     n.Archive.Options,
			Args:        n.Archive.Args,
			Excludes:    n.Archive.Excludes,
			ExcludeFile: n.Archive.ExcludeFile,
			MountPoint:  n.Archive.MountPoint,
		})
	}

	if n.KeepAlive {
		s.SetKeepAlive(true)
	}
	return s, nil
}

func (n *stepNode) variants() int {
	count := 0
	for _, present := range []bool{
		n.Mount != nil, n.Luks != nil, n.Lvm != nil, n.Command != nil,
		n.CopyFiles != nil, n.Rotate != nil, n.Rsync != nil, n.Archive != nil,
	} {
		if present {
			count++
		}
	}
	return count
}
