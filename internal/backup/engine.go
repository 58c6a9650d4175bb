package backup

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/lockfile"
	"github.com/thoreinstein/bakman/internal/step"
	"github.com/thoreinstein/bakman/internal/system"
)

// Engine drives a configuration's selected parts through the phased
// protocol: mount everything, run everything, release everything, then
// release the keep-alive steps. Steps, parts, and phases execute strictly
// one at a time; they mutate order-sensitive kernel state (the mount
// table, device-mapper mappings, volume-group activation) where concurrent
// mutation is unsafe.
type Engine struct {
	sys     system.System
	log     *slog.Logger
	lockDir string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLockDir enables a per-configuration advisory lock held from the
// first phase to the last, so two invocations cannot fight over the same
// devices. Empty disables locking.
func WithLockDir(dir string) EngineOption {
	return func(e *Engine) { e.lockDir = dir }
}

// NewEngine returns an engine executing against sys.
func NewEngine(sys system.System, log *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{sys: sys, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute drives the named parts of cfg through the requested phases.
//
// An empty part list is a complete no-op: nothing is mounted, including
// the common steps, and no privilege is required. Otherwise the caller
// must be root, parts are deduplicated by step identity, and the phases
// run in order. A mount failure aborts the invocation with everything
// mounted so far left attached for inspection; run and release failures
// are logged and never abort the remaining steps.
func (e *Engine) Execute(ctx context.Context, cfg *Configuration, parts []string, opts step.Options, phases Phases) error {
	if len(parts) == 0 {
		e.log.Info("no parts selected, nothing to do", "configuration", cfg.Name())
		return nil
	}
	if e.sys.EUID() != 0 {
		return errors.Wrapf(ErrNotRoot, "executing %s", cfg.Name())
	}
	unique, err := cfg.UniqueSteps(parts)
	if err != nil {
		return err
	}
	if e.lockDir != "" {
		lock, err := lockfile.Acquire(e.lockDir, cfg.Name())
		if err != nil {
			return errors.Wrapf(err, "configuration %s is busy", cfg.Name())
		}
		defer lock.Release()
	}

	env := &step.Env{Sys: e.sys, Opts: opts, Log: e.log}
	if phases.Mount {
		if err := e.mountAll(ctx, env, unique); err != nil {
			return err
		}
	}
	if phases.Run {
		e.runAll(ctx, env, unique)
	}
	if phases.Unmount {
		e.unmountAll(ctx, env, unique)
		e.finalizeAll(ctx, env, unique)
	}
	return nil
}

// mountAll attaches the common steps, then each part's steps, in declared
// order. The first failure aborts: later steps almost certainly depend on
// the failed resource. Nothing already attached is rolled back, so the
// operator can inspect the state and release it by hand.
func (e *Engine) mountAll(ctx context.Context, env *step.Env, cfg *Configuration) error {
	for _, s := range cfg.common {
		e.log.Debug("mounting", "kind", s.Kind(), "scope", "common")
		if err := s.Mount(ctx, env); err != nil {
			return errors.Wrapf(err, "mounting common %s step of %s", s.Kind(), cfg.name)
		}
	}
	for _, p := range cfg.parts {
		for _, s := range p.steps {
			e.log.Debug("mounting", "kind", s.Kind(), "scope", p.name)
			if err := s.Mount(ctx, env); err != nil {
				return errors.Wrapf(err, "mounting %s step of part %s", s.Kind(), p.name)
			}
		}
	}
	return nil
}

// runAll moves data best effort: a failed step is logged and its siblings
// still run, so one bad source does not cost the rest of the backup.
func (e *Engine) runAll(ctx context.Context, env *step.Env, cfg *Configuration) {
	for _, s := range cfg.common {
		e.log.Debug("running", "kind", s.Kind(), "scope", "common")
		if err := s.Run(ctx, env); err != nil {
			e.log.Error("step failed", "kind", s.Kind(), "scope", "common", "error", err)
		}
	}
	for _, p := range cfg.parts {
		for _, s := range p.steps {
			e.log.Debug("running", "kind", s.Kind(), "scope", p.name)
			if err := s.Run(ctx, env); err != nil {
				e.log.Error("step failed", "kind", s.Kind(), "scope", p.name, "error", err)
			}
		}
	}
}

// unmountAll releases the non-keep-alive steps: each part's steps in
// reverse declared order, parts in the caller's order, then the common
// steps in reverse.
func (e *Engine) unmountAll(ctx context.Context, env *step.Env, cfg *Configuration) {
	for _, p := range cfg.parts {
		e.release(ctx, env, p.steps, false, p.name)
	}
	e.release(ctx, env, cfg.common, false, "common")
}

// finalizeAll releases the keep-alive steps once every part is done with
// them: parts in reverse order, then the common steps, each sequence in
// reverse declared order. Last acquired, first released: a mapping cannot
// close while a filesystem is still mounted on it.
func (e *Engine) finalizeAll(ctx context.Context, env *step.Env, cfg *Configuration) {
	for i := len(cfg.parts) - 1; i >= 0; i-- {
		p := cfg.parts[i]
		e.release(ctx, env, p.steps, true, p.name)
	}
	e.release(ctx, env, cfg.common, true, "common")
}

// release calls Unmount in reverse order on the steps whose keep-alive
// flag matches keepAlive. Failures are logged and the teardown continues;
// stopping early would leak every resource behind the failed one.
func (e *Engine) release(ctx context.Context, env *step.Env, steps []step.Step, keepAlive bool, scope string) {
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.KeepAlive() != keepAlive {
			continue
		}
		e.log.Debug("unmounting", "kind", s.Kind(), "scope", scope)
		if err := s.Unmount(ctx, env); err != nil {
			e.log.Warn("unmount failed", "kind", s.Kind(), "scope", scope, "error", err)
		}
	}
}
