package step

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

func TestLuksAvailable(t *testing.T) {
	owner := defaultOwner()
	device := "/dev/disk/by-id/ata-DISK-part2"

	tests := []struct {
		name      string
		key       string
		keyFile   string
		existing  []string
		available bool
	}{
		{"literal key and device", "sekrit", "", []string{device}, true},
		{"key file and device", "", "/root/bak.key", []string{device, "/root/bak.key"}, true},
		{"no key material", "", "", []string{device}, false},
		{"missing key file", "", "/root/bak.key", []string{device}, false},
		{"missing device", "sekrit", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := system.NewFake()
			for _, p := range tt.existing {
				sys.Existing[p] = true
			}
			env := newTestEnv(t, sys, Options{})
			l := NewLuks("crypt", Partition(2), tt.key, tt.keyFile)
			mustBind(t, l, owner)

			if got := l.Available(env); got != tt.available {
				t.Errorf("Available = %v, want %v", got, tt.available)
			}
		})
	}
}

func TestLuksMount(t *testing.T) {
	ctx := context.Background()
	owner := defaultOwner()
	device := "/dev/disk/by-id/ata-DISK-part2"

	t.Run("pipes literal key over stdin", func(t *testing.T) {
		sys := system.NewFake()
		sys.Existing["/dev/mapper/bak-crypt"] = true
		env := newTestEnv(t, sys, Options{})
		l := NewLuks("crypt", Partition(2), "sekrit", "")
		mustBind(t, l, owner)

		if err := l.Mount(ctx, env); err != nil {
			t.Fatal(err)
		}
		if len(sys.Commands) != 1 {
			t.Fatalf("ran %d commands, want 1", len(sys.Commands))
		}
		cmd := sys.Commands[0]
		wantArgv := "cryptsetup luksOpen " + device + " bak-crypt"
		if got := strings.Join(cmd.Argv, " "); got != wantArgv {
			t.Errorf("argv = %q, want %q", got, wantArgv)
		}
		if cmd.Input != "sekrit\n" {
			t.Errorf("stdin = %q, want key material", cmd.Input)
		}
		if strings.Contains(strings.Join(cmd.Argv, " "), "sekrit") {
			t.Error("key material leaked into argv")
		}
	})

	t.Run("reads and trims key file", func(t *testing.T) {
		sys := system.NewFake()
		sys.Existing["/dev/mapper/bak-crypt"] = true
		sys.Files["/root/bak.key"] = "filekey\n"
		env := newTestEnv(t, sys, Options{})
		l := NewLuks("crypt", Partition(2), "", "/root/bak.key")
		mustBind(t, l, owner)

		if err := l.Mount(ctx, env); err != nil {
			t.Fatal(err)
		}
		if got := sys.Commands[0].Input; got != "filekey\n" {
			t.Errorf("stdin = %q, want trimmed file contents", got)
		}
	})

	t.Run("missing mapper node fails", func(t *testing.T) {
		sys := system.NewFake()
		env := newTestEnv(t, sys, Options{})
		l := NewLuks("crypt", Partition(2), "sekrit", "")
		mustBind(t, l, owner)

		err := l.Mount(ctx, env)
		if err == nil {
			t.Fatal("expected failure when mapper node does not appear")
		}
		if !strings.Contains(err.Error(), "did not appear") {
			t.Errorf("error = %v, want post-condition failure", err)
		}
	})

	t.Run("cryptsetup failure propagates", func(t *testing.T) {
		sys := system.NewFake()
		sys.Fail["cryptsetup luksOpen"] = errors.New("no key available")
		env := newTestEnv(t, sys, Options{})
		l := NewLuks("crypt", Partition(2), "sekrit", "")
		mustBind(t, l, owner)

		if err := l.Mount(ctx, env); err == nil {
			t.Fatal("expected cryptsetup failure")
		}
	})
}

func TestLuksUnmount(t *testing.T) {
	sys := system.NewFake()
	env := newTestEnv(t, sys, Options{})
	l := NewLuks("crypt", Partition(2), "sekrit", "")
	mustBind(t, l, defaultOwner())

	if err := l.Unmount(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if got := sys.Lines()[0]; got != "cryptsetup luksClose bak-crypt" {
		t.Errorf("command = %q", got)
	}
}

func TestLuksMapperScopedByConfiguration(t *testing.T) {
	l := NewLuks("crypt", DevicePath("/dev/sdb2"), "sekrit", "")
	mustBind(t, l, &testOwner{name: "offsite", root: "/media/offsite"})

	if got := l.mapperPath(); got != "/dev/mapper/offsite-crypt" {
		t.Errorf("mapper path = %q, want configuration-scoped name", got)
	}
}
