package step

import (
	"context"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

func TestCheckRotationPath(t *testing.T) {
	tests := []struct {
		path string
		safe bool
	}{
		{"/media/bak/home/3", true},
		{"/", false},
		{"/media/bak/*", false},
		{"/media/%s/home", false},
		{"/media/bak/home?", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := checkRotationPath(tt.path)
			if tt.safe && err != nil {
				t.Errorf("checkRotationPath(%q) = %v, want nil", tt.path, err)
			}
			if !tt.safe && !errors.Is(err, ErrUnsafeRotation) {
				t.Errorf("checkRotationPath(%q) = %v, want ErrUnsafeRotation", tt.path, err)
			}
		})
	}
}

func TestShiftGenerations(t *testing.T) {
	ctx := context.Background()

	t.Run("shifts newest-last so no slot is overwritten", func(t *testing.T) {
		sys := system.NewFake()
		for _, p := range []string{"/media/bak/home/0", "/media/bak/home/1", "/media/bak/home/2"} {
			sys.Existing[p] = true
		}
		env := newTestEnv(t, sys, Options{})

		if err := shiftGenerations(ctx, env, "/media/bak/home", 3); err != nil {
			t.Fatal(err)
		}
		want := []string{
			"mv -f /media/bak/home/2 /media/bak/home/3",
			"mv -f /media/bak/home/1 /media/bak/home/2",
			"mv -f /media/bak/home/0 /media/bak/home/1",
		}
		if got := sys.Lines(); !reflect.DeepEqual(got, want) {
			t.Errorf("commands = %v, want %v", got, want)
		}
	})

	t.Run("removes the oldest generation first", func(t *testing.T) {
		sys := system.NewFake()
		for _, p := range []string{"/media/bak/home/0", "/media/bak/home/3"} {
			sys.Existing[p] = true
		}
		env := newTestEnv(t, sys, Options{})

		if err := shiftGenerations(ctx, env, "/media/bak/home", 3); err != nil {
			t.Fatal(err)
		}
		want := []string{
			"rm -rf /media/bak/home/3",
			"mv -f /media/bak/home/0 /media/bak/home/1",
		}
		if got := sys.Lines(); !reflect.DeepEqual(got, want) {
			t.Errorf("commands = %v, want %v", got, want)
		}
	})

	t.Run("stops at the first failed rename", func(t *testing.T) {
		sys := system.NewFake()
		for _, p := range []string{"/media/bak/home/0", "/media/bak/home/1", "/media/bak/home/2"} {
			sys.Existing[p] = true
		}
		sys.Fail["mv -f /media/bak/home/2"] = errors.New("device full")
		env := newTestEnv(t, sys, Options{})

		if err := shiftGenerations(ctx, env, "/media/bak/home", 3); err == nil {
			t.Fatal("expected rename failure to propagate")
		}
		if sys.Ran("mv -f /media/bak/home/1") {
			t.Error("later renames must not run after a failure")
		}
	})

	t.Run("keep zero is a no-op", func(t *testing.T) {
		sys := system.NewFake()
		env := newTestEnv(t, sys, Options{})

		if err := shiftGenerations(ctx, env, "/media/bak/home", 0); err != nil {
			t.Fatal(err)
		}
		if len(sys.Commands) != 0 {
			t.Errorf("ran %d commands, want none", len(sys.Commands))
		}
	})
}

func TestRotate(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves against the mount root", func(t *testing.T) {
		sys := system.NewFake()
		sys.Existing["/media/bak/home/0"] = true
		env := newTestEnv(t, sys, Options{})
		r := NewRotate(2, "home", "")
		mustBind(t, r, defaultOwner())

		if err := r.Run(ctx, env); err != nil {
			t.Fatal(err)
		}
		want := []string{"mv -f /media/bak/home/0 /media/bak/home/1"}
		if got := sys.Lines(); !reflect.DeepEqual(got, want) {
			t.Errorf("commands = %v, want %v", got, want)
		}
	})

	t.Run("explicit mount point overrides the owner", func(t *testing.T) {
		r := NewRotate(2, "home", "/mnt/alt")
		mustBind(t, r, defaultOwner())

		if got := r.path; got != "/mnt/alt/home" {
			t.Errorf("path = %q, want /mnt/alt/home", got)
		}
	})

	t.Run("availability follows the destination", func(t *testing.T) {
		sys := system.NewFake()
		env := newTestEnv(t, sys, Options{})
		r := NewRotate(2, "home", "")
		mustBind(t, r, defaultOwner())

		if r.Available(env) {
			t.Error("missing destination should be unavailable")
		}
		sys.Existing["/media/bak/home"] = true
		if !r.Available(env) {
			t.Error("existing destination should be available")
		}
	})

	t.Run("unsafe path refuses to run", func(t *testing.T) {
		sys := system.NewFake()
		env := newTestEnv(t, sys, Options{})
		r := NewRotate(1, "snap?", "")
		mustBind(t, r, defaultOwner())

		if err := r.Run(ctx, env); !errors.Is(err, ErrUnsafeRotation) {
			t.Errorf("Run = %v, want ErrUnsafeRotation", err)
		}
		if len(sys.Commands) != 0 {
			t.Error("no command may run on an unsafe path")
		}
	})

	t.Run("dry run flags every command", func(t *testing.T) {
		sys := system.NewFake()
		for _, p := range []string{"/media/bak/home/0", "/media/bak/home/2"} {
			sys.Existing[p] = true
		}
		env := newTestEnv(t, sys, Options{DryRun: true})
		r := NewRotate(2, "home", "")
		mustBind(t, r, defaultOwner())

		if err := r.Run(ctx, env); err != nil {
			t.Fatal(err)
		}
		for _, cmd := range sys.Commands {
			if !cmd.DryRun {
				t.Errorf("command %v not flagged dry run", cmd.Argv)
			}
		}
	})
}
