package step

import (
	"testing"

	"github.com/thoreinstein/bakman/internal/logging"
	"github.com/thoreinstein/bakman/internal/system"
)

// testOwner is a minimal Owner for exercising steps without a full
// configuration.
type testOwner struct {
	name string
	root string
	disk string
}

func (o *testOwner) Name() string      { return o.name }
func (o *testOwner) MountRoot() string { return o.root }

func (o *testOwner) Device(spec DeviceSpec) (string, error) {
	return spec.Resolve(o.disk)
}

func defaultOwner() *testOwner {
	return &testOwner{name: "bak", root: "/media/bak", disk: "ata-DISK"}
}

func newTestEnv(t *testing.T, sys *system.Fake, opts Options) *Env {
	t.Helper()
	return &Env{Sys: sys, Opts: opts, Log: logging.ForTest(t)}
}

func mustBind(t *testing.T, s Step, owner Owner) {
	t.Helper()
	if err := s.Bind(owner); err != nil {
		t.Fatalf("binding %s step: %v", s.Kind(), err)
	}
}
