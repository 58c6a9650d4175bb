package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/bakman/internal/backup"
	bakerrors "github.com/thoreinstein/bakman/internal/errors"
	"github.com/thoreinstein/bakman/internal/logging"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

func testEnv(t *testing.T) *step.Env {
	t.Helper()
	return &step.Env{Sys: system.NewFake(), Log: logging.ForTest(t)}
}

const fullDefinitions = `configurations:
  - name: bakdisk
    description: weekly backup to encrypted disk
    disk: ata-DISK
    common:
      - luks: {name: crypt, device: 2, keyFile: /root/bak.key}
        keepAlive: true
      - mount: {device: /dev/mapper/bakdisk-crypt, options: noatime, settle: 2s}
        keepAlive: true
    parts:
      - name: system
        steps:
          - archive: {dest: system, keep: 3, sources: [/etc, /usr/local]}
      - name: home
        steps:
          - rsync: {source: home, options: --modify-window=3601}
      - name: db
        steps:
          - command: {template: 'mysqldump --all-databases > ${out}', params: {out: /tmp/db.sql}}
          - copyFiles: {files: [/etc/fstab, /etc/crypttab], dest: etc}
          - rotate: {keep: 2, dest: snap}
          - lvm: {group: backupvg}
`

func TestParseDefinitions(t *testing.T) {
	reg, err := ParseDefinitions([]byte(fullDefinitions), "")
	if err != nil {
		t.Fatalf("ParseDefinitions() error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 configuration, got %d", reg.Len())
	}

	cfg, err := reg.Get("bakdisk")
	if err != nil {
		t.Fatalf("Get(bakdisk) error: %v", err)
	}
	if cfg.Description() != "weekly backup to encrypted disk" {
		t.Errorf("description = %q", cfg.Description())
	}
	if cfg.Disk() != "ata-DISK" {
		t.Errorf("disk = %q", cfg.Disk())
	}
	if cfg.MountRoot() != "/media/bakdisk" {
		t.Errorf("mount root = %q, want /media/bakdisk", cfg.MountRoot())
	}

	common := cfg.Common()
	if len(common) != 2 {
		t.Fatalf("expected 2 common steps, got %d", len(common))
	}
	if common[0].Kind() != step.KindLuks || common[1].Kind() != step.KindMount {
		t.Errorf("common kinds = %s, %s", common[0].Kind(), common[1].Kind())
	}
	for i, s := range common {
		if !s.KeepAlive() {
			t.Errorf("common step %d should be keep-alive", i)
		}
	}

	wantParts := []string{"system", "home", "db"}
	if got := cfg.PartNames(); !equalStrings(got, wantParts) {
		t.Errorf("parts = %v, want %v", got, wantParts)
	}

	db, ok := cfg.Part("db")
	if !ok {
		t.Fatal("part db not found")
	}
	wantKinds := []string{step.KindCommand, step.KindCopyFiles, step.KindRotate, step.KindVolumeGroup}
	for i, s := range db.Steps() {
		if s.Kind() != wantKinds[i] {
			t.Errorf("db step %d kind = %s, want %s", i, s.Kind(), wantKinds[i])
		}
		if s.KeepAlive() {
			t.Errorf("db step %d should not be keep-alive", i)
		}
	}

	// Adding parts after load must fail: configurations come back locked.
	if err := cfg.AddPart("late"); !errors.Is(err, backup.ErrLocked) {
		t.Errorf("AddPart on loaded configuration = %v, want ErrLocked", err)
	}
}

func TestParseDefinitionsMountBase(t *testing.T) {
	content := `configurations:
  - name: plain
    parts:
      - name: home
        steps:
          - rsync: {source: home}
  - name: pinned
    mountBase: /backup
    parts:
      - name: home
        steps:
          - rsync: {source: home}
`
	tests := []struct {
		name     string
		base     string
		cfg      string
		wantRoot string
	}{
		{"default base", "", "plain", "/media/plain"},
		{"loader base", "/mnt", "plain", "/mnt/plain"},
		{"configuration base wins", "/mnt", "pinned", "/backup/pinned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := ParseDefinitions([]byte(content), tt.base)
			if err != nil {
				t.Fatalf("ParseDefinitions() error: %v", err)
			}
			cfg, err := reg.Get(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got := cfg.MountRoot(); got != tt.wantRoot {
				t.Errorf("mount root = %q, want %q", got, tt.wantRoot)
			}
		})
	}
}

func TestParseDefinitionsDeviceForms(t *testing.T) {
	content := `configurations:
  - name: bak
    disk: ata-X
    parts:
      - name: p
        steps:
          - mount: {device: 2}
          - mount: {device: /dev/sdb1}
          - mount: {}
`
	reg, err := ParseDefinitions([]byte(content), "")
	if err != nil {
		t.Fatalf("ParseDefinitions() error: %v", err)
	}
	cfg, err := reg.Get("bak")
	if err != nil {
		t.Fatal(err)
	}
	p, _ := cfg.Part("p")
	env := testEnv(t)

	wantDevices := []string{"/dev/disk/by-id/ata-X-part2", "/dev/sdb1", "/dev/disk/by-id/ata-X"}
	for i, s := range p.Steps() {
		if desc := s.Describe(env); !strings.Contains(desc, wantDevices[i]) {
			t.Errorf("step %d describe = %q, want device %q", i, desc, wantDevices[i])
		}
	}
}

func TestParseDefinitionsSettleForms(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"duration string", "2s", 2 * time.Second},
		{"compound duration", "1m30s", 90 * time.Second},
		{"bare seconds", "3", 3 * time.Second},
		{"milliseconds", "250ms", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var node struct {
				Settle durationNode `yaml:"settle"`
			}
			if err := yaml.Unmarshal([]byte("settle: "+tt.value), &node); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if node.Settle.Duration != tt.want {
				t.Errorf("settle = %v, want %v", node.Settle.Duration, tt.want)
			}
		})
	}
}

func TestParseDefinitionsInvalid(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     string
		wantInvalid bool
	}{
		{
			name: "two variant keys",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - rsync: {source: home}
            lvm: {group: vg}
`,
			wantErr:     "exactly one of",
			wantInvalid: true,
		},
		{
			name: "no variant key",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - keepAlive: true
`,
			wantErr:     "exactly one of",
			wantInvalid: true,
		},
		{
			name: "unknown step field",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - rsync: {sauce: home}
`,
			wantErr: "not found",
		},
		{
			name: "unknown top-level key",
			content: `configs:
  - name: bak
`,
			wantErr: "not found",
		},
		{
			name: "configuration without a name",
			content: `configurations:
  - description: nameless
`,
			wantErr:     "configuration without a name",
			wantInvalid: true,
		},
		{
			name: "part without a name",
			content: `configurations:
  - name: bak
    parts:
      - steps:
          - rsync: {source: home}
`,
			wantErr:     "part without a name",
			wantInvalid: true,
		},
		{
			name: "duplicate configuration",
			content: `configurations:
  - name: bak
  - name: bak
`,
			wantErr: "declared twice",
		},
		{
			name: "duplicate part",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps: []
      - name: p
        steps: []
`,
			wantErr: "declared twice",
		},
		{
			name: "luks without a name",
			content: `configurations:
  - name: bak
    common:
      - luks: {device: 2}
`,
			wantErr:     "luks needs a name",
			wantInvalid: true,
		},
		{
			name: "lvm without a group",
			content: `configurations:
  - name: bak
    common:
      - lvm: {}
`,
			wantErr:     "lvm needs a group",
			wantInvalid: true,
		},
		{
			name: "command without a template",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - command: {params: {a: b}}
`,
			wantErr:     "command needs a template",
			wantInvalid: true,
		},
		{
			name: "copyFiles without a dest",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - copyFiles: {files: [/etc/fstab]}
`,
			wantErr:     "copyFiles needs files and a dest",
			wantInvalid: true,
		},
		{
			name: "rotate keeping nothing",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - rotate: {dest: snap}
`,
			wantErr:     "rotate needs keep >= 1",
			wantInvalid: true,
		},
		{
			name: "rsync without a source",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - rsync: {}
`,
			wantErr:     "rsync needs a source",
			wantInvalid: true,
		},
		{
			name: "archive without sources",
			content: `configurations:
  - name: bak
    parts:
      - name: p
        steps:
          - archive: {dest: sys}
`,
			wantErr:     "archive needs sources",
			wantInvalid: true,
		},
		{
			name: "device of the wrong type",
			content: `configurations:
  - name: bak
    common:
      - mount: {device: true}
`,
			wantErr: "partition number or a device path",
		},
		{
			name: "unparsable settle",
			content: `configurations:
  - name: bak
    common:
      - mount: {settle: soon}
`,
			wantErr: "invalid duration",
		},
		{
			name: "partition without a disk",
			content: `configurations:
  - name: bak
    common:
      - mount: {device: 1}
`,
			wantErr: "requires a disk identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitions([]byte(tt.content), "")
			if err == nil {
				t.Fatal("ParseDefinitions() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
			if tt.wantInvalid && !errors.Is(err, bakerrors.ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig: %v", err)
			}
		})
	}
}

func TestParseDefinitionsEmpty(t *testing.T) {
	for _, content := range []string{"", "configurations: []\n"} {
		reg, err := ParseDefinitions([]byte(content), "")
		if err != nil {
			t.Fatalf("ParseDefinitions(%q) error: %v", content, err)
		}
		if reg.Len() != 0 {
			t.Errorf("expected empty registry, got %d configurations", reg.Len())
		}
	}
}

func TestLoadDefinitionsTOML(t *testing.T) {
	content := `[[configurations]]
name = "bakdisk"
description = "weekly backup"
disk = "ata-DISK"

[[configurations.common]]
keepAlive = true
[configurations.common.luks]
name = "crypt"
device = 2
keyFile = "/root/bak.key"

[[configurations.parts]]
name = "home"
[[configurations.parts.steps]]
[configurations.parts.steps.rsync]
source = "home"
`
	path := filepath.Join(t.TempDir(), "definitions.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadDefinitions(path, "")
	if err != nil {
		t.Fatalf("LoadDefinitions() error: %v", err)
	}
	cfg, err := reg.Get("bakdisk")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Disk() != "ata-DISK" {
		t.Errorf("disk = %q", cfg.Disk())
	}
	common := cfg.Common()
	if len(common) != 1 || common[0].Kind() != step.KindLuks || !common[0].KeepAlive() {
		t.Errorf("unexpected common steps: %+v", common)
	}
	if got := cfg.PartNames(); !equalStrings(got, []string{"home"}) {
		t.Errorf("parts = %v", got)
	}
}

func TestLoadDefinitionsMissingFile(t *testing.T) {
	_, err := LoadDefinitions(filepath.Join(t.TempDir(), "definitions.yaml"), "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFindDefinitions(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	t.Run("nothing found", func(t *testing.T) {
		_, err := FindDefinitions("")
		if !errors.Is(err, bakerrors.ErrNoDefinitions) {
			t.Errorf("error = %v, want ErrNoDefinitions", err)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		missing := filepath.Join(dir, "nope.yaml")
		_, err := FindDefinitions(missing)
		if !errors.Is(err, bakerrors.ErrNoDefinitions) {
			t.Errorf("error = %v, want ErrNoDefinitions", err)
		}
		if !strings.Contains(err.Error(), missing) {
			t.Errorf("error should name the path: %v", err)
		}
	})

	candidate := filepath.Join(dir, "bakman", "definitions.yaml")
	if err := os.MkdirAll(filepath.Dir(candidate), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(candidate, []byte("configurations: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("candidate found", func(t *testing.T) {
		got, err := FindDefinitions("")
		if err != nil {
			t.Fatalf("FindDefinitions() error: %v", err)
		}
		if got != candidate {
			t.Errorf("path = %q, want %q", got, candidate)
		}
	})

	t.Run("explicit path wins", func(t *testing.T) {
		explicit := filepath.Join(dir, "other.yaml")
		if err := os.WriteFile(explicit, []byte("configurations: []\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := FindDefinitions(explicit)
		if err != nil {
			t.Fatalf("FindDefinitions() error: %v", err)
		}
		if got != explicit {
			t.Errorf("path = %q, want %q", got, explicit)
		}
	})
}

func TestSampleDefinitions(t *testing.T) {
	reg, err := ParseDefinitions([]byte(SampleDefinitions), "")
	if err != nil {
		t.Fatalf("sample does not parse: %v", err)
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 sample configurations, got %d", reg.Len())
	}

	cfg, err := reg.Get("encryptedBackup")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MountRoot() != "/backup/encryptedBackup" {
		t.Errorf("mount root = %q", cfg.MountRoot())
	}
	common := cfg.Common()
	if len(common) != 2 {
		t.Fatalf("expected 2 common steps, got %d", len(common))
	}
	for i, s := range common {
		if !s.KeepAlive() {
			t.Errorf("common step %d should be keep-alive", i)
		}
	}
	if got := cfg.PartNames(); !equalStrings(got, []string{"example", "var"}) {
		t.Errorf("parts = %v", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
