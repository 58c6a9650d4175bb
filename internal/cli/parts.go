// Package cli holds policy shared by the bakman commands: deciding which
// parts of a configuration an invocation uses, and rendering availability
// in listings.
package cli

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/thoreinstein/bakman/internal/backup"
	"github.com/thoreinstein/bakman/internal/step"
)

// SelectParts decides which parts of cfg an invocation uses. An empty
// requested list means every defined part. Requesting a part that is not
// defined is a configuration error; a defined part whose prerequisites are
// missing is skipped with a warning, never fatal. Exclusions are filtered
// out last. The selection summary is logged at info.
func SelectParts(env *step.Env, cfg *backup.Configuration, requested, excluded []string) ([]string, error) {
	defined := cfg.PartNames()
	available := PartNames(cfg.AvailableParts(env))

	tryParts := requested
	explicit := len(requested) > 0
	if !explicit {
		tryParts = defined
	}

	using := []string{}
	for _, name := range tryParts {
		if explicit && !slices.Contains(defined, name) {
			return nil, errors.Wrapf(backup.ErrUnknownPart, "%s has no part %q", cfg.Name(), name)
		}
		if !slices.Contains(available, name) {
			env.Log.Warn("part not available, skipping", "part", name)
			continue
		}
		if slices.Contains(excluded, name) {
			continue
		}
		using = append(using, name)
	}

	env.Log.Info("selected parts",
		"configuration", cfg.Name(),
		"defined", defined,
		"available", available,
		"excluded", excluded,
		"using", using)
	return using, nil
}

// PartNames returns the names of parts, in order.
func PartNames(parts []*backup.Part) []string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Name()
	}
	return names
}

var availableMark = color.New(color.FgGreen, color.Bold)

// Mark renders the availability column of listings: a green asterisk when
// available, a space otherwise.
func Mark(available bool) string {
	if available {
		return availableMark.Sprint("*")
	}
	return " "
}
