package backup

import (
	"github.com/cockroachdb/errors"
)

// DefaultMountBase is the directory configuration mount roots live under
// when neither the configuration nor the caller overrides it.
const DefaultMountBase = "/media"

// Sentinel errors for configuration and engine operations.
var (
	// ErrLocked indicates an attempt to add a part to a configuration
	// after it was locked.
	ErrLocked = errors.New("configuration is locked")

	// ErrUnknownConfiguration indicates a name no configuration was
	// registered under.
	ErrUnknownConfiguration = errors.New("unknown configuration")

	// ErrUnknownPart indicates a part name the configuration does not
	// define.
	ErrUnknownPart = errors.New("unknown part")

	// ErrNotRoot indicates the engine was invoked without the privilege
	// needed to mount devices and read every file worth backing up.
	ErrNotRoot = errors.New("root privilege required")
)

// Phases selects which phases of the protocol Execute drives. Releasing
// includes the finalize pass over keep-alive steps.
type Phases struct {
	Mount   bool
	Run     bool
	Unmount bool
}

// Canned phase selections for the three operator verbs.
var (
	// PhasesAll drives a complete backup: attach, move data, release.
	PhasesAll = Phases{Mount: true, Run: true, Unmount: true}

	// PhasesMount attaches only, leaving everything mounted.
	PhasesMount = Phases{Mount: true}

	// PhasesUnmount releases a previously mounted configuration.
	PhasesUnmount = Phases{Unmount: true}
)
