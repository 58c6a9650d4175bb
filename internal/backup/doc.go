// Package backup holds the configuration model and the execution engine
// that drive multi-step backup procedures.
//
// # Model
//
// A [Configuration] is a named backup procedure: an optional disk
// identifier, a mount root derived from a base directory and the name,
// steps shared by every part ("common" steps, typically the attach chain
// for the backup medium), and an ordered sequence of named [Part] values,
// each an independently selectable step sequence. Configurations are
// declared once, locked, and read thereafter:
//
//	cfg, err := backup.New("bakdisk5",
//	    backup.WithDescription("Weekly backup to encrypted disk 5"),
//	    backup.WithDisk("ata-WDC_WD10EZEX-XXXX"),
//	    backup.WithCommon(luks, mount),
//	)
//	...
//	err = cfg.AddPart("system", archive)
//	err = cfg.AddPart("home", rsync)
//	cfg.Lock()
//
// Availability is conjunctive and fail-closed: a part is available only
// when the disk, every common step, and every one of its own steps report
// available. One missing shared resource disables all parts.
//
// # Deduplication
//
// The same step instance may be referenced by several parts, for example
// a mount both parts write into. Running the parts naively would attach
// and release that resource once per part. [Configuration.UniqueSteps]
// builds the transient configuration the engine actually runs: walking
// the selected parts in order, a step instance already emitted under an
// earlier part is dropped from later ones. Identity is the step's ID, not
// field equality, because two identically configured steps are still two
// distinct attachable resources.
//
// # Phased execution
//
// [Engine.Execute] drives four phases across the common steps and the
// selected parts:
//
//	MOUNT     common, then each part, steps in declared order
//	RUN       common, then each part, steps in declared order
//	UNMOUNT   each part with steps reversed, then common reversed,
//	          skipping keep-alive steps
//	FINALIZE  keep-alive steps only: parts in reverse order with steps
//	          reversed, then common reversed
//
// Keep-alive steps model shared resources, an encrypted volume or the
// mount above it, that must stay attached while any part still depends on
// them. They are released exactly once, last, in last-acquired-first-
// released order.
//
// # Failure policy
//
// A mount failure aborts the invocation; already-attached resources stay
// attached, with no automatic rollback. Run failures are logged and the
// remaining steps proceed. Unmount and finalize failures are logged and
// never propagated, so teardown always attempts every step. An empty part
// selection is a complete no-op and needs no privilege; anything else
// requires root.
//
// # Locking
//
// Two concurrent invocations against one configuration would race over
// the same mount points and mapper names. [WithLockDir] makes the engine
// hold an advisory lock named after the configuration for the whole
// invocation; the loser fails fast with a "busy" error.
package backup
