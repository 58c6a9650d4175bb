package backup

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/logging"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

// probe is a recording step double. Every phase call appends
// "<phase> <name>" to the shared journal.
type probe struct {
	id        step.ID
	name      string
	keepAlive bool
	available bool
	journal   *[]string
	failMount bool
	failRun   bool
}

var probeIDs atomic.Uint64

func newProbe(journal *[]string, name string) *probe {
	return &probe{
		id:        step.ID(probeIDs.Add(1)),
		name:      name,
		available: true,
		journal:   journal,
	}
}

func (p *probe) record(phase string) {
	if p.journal != nil {
		*p.journal = append(*p.journal, phase+" "+p.name)
	}
}

func (p *probe) ID() step.ID               { return p.id }
func (p *probe) Kind() string              { return "probe" }
func (p *probe) KeepAlive() bool           { return p.keepAlive }
func (p *probe) SetKeepAlive(v bool)       { p.keepAlive = v }
func (p *probe) Bind(step.Owner) error     { return nil }
func (p *probe) Available(*step.Env) bool  { return p.available }
func (p *probe) Describe(*step.Env) string { return "probe " + p.name }

func (p *probe) Mount(context.Context, *step.Env) error {
	p.record("mount")
	if p.failMount {
		return errors.New("mount blew up")
	}
	return nil
}

func (p *probe) Run(context.Context, *step.Env) error {
	p.record("run")
	if p.failRun {
		return errors.New("run blew up")
	}
	return nil
}

func (p *probe) Unmount(context.Context, *step.Env) error {
	p.record("unmount")
	return nil
}

func newEnv(t *testing.T, sys system.System) *step.Env {
	t.Helper()
	return &step.Env{Sys: sys, Opts: step.Options{}, Log: logging.ForTest(t)}
}

// mustAddPart fails the test on an AddPart error.
func mustAddPart(t *testing.T, c *Configuration, name string, steps ...step.Step) {
	t.Helper()
	if err := c.AddPart(name, steps...); err != nil {
		t.Fatalf("adding part %s: %v", name, err)
	}
}

// mustNew fails the test on a New error.
func mustNew(t *testing.T, name string, opts ...Option) *Configuration {
	t.Helper()
	c, err := New(name, opts...)
	if err != nil {
		t.Fatalf("creating configuration %s: %v", name, err)
	}
	return c
}
