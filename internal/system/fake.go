package system

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Fake is an in-memory [System] for tests. It records every command it is
// asked to run and answers queries from preset maps. The zero value is not
// usable; construct with [NewFake].
type Fake struct {
	// Commands holds every Run invocation in order, including dry runs.
	Commands []Command

	// Fail maps a substring of the joined argv to the error Run should
	// return when the substring matches.
	Fail map[string]error

	// Existing, Mounts, and Populated back PathExists, IsMountPoint, and
	// DirNonEmpty respectively.
	Existing  map[string]bool
	Mounts    map[string]bool
	Populated map[string]bool

	// Globs maps a pattern to the paths Glob should return for it.
	Globs map[string][]string

	// Files maps a path to the contents ReadFile should return for it.
	Files map[string]string

	// UID is returned by EUID. NewFake sets it to 0 so engine tests run
	// as a pretend root by default.
	UID int

	// Clock is returned by Now.
	Clock time.Time
}

// NewFake returns a Fake with empty state, UID 0, and a fixed clock.
func NewFake() *Fake {
	return &Fake{
		Fail:      map[string]error{},
		Existing:  map[string]bool{},
		Mounts:    map[string]bool{},
		Populated: map[string]bool{},
		Globs:     map[string][]string{},
		Files:     map[string]string{},
		Clock:     time.Date(2024, time.March, 9, 4, 30, 0, 0, time.UTC),
	}
}

// Run records cmd and returns a scripted failure if any Fail substring
// matches the joined argv. Dry-run commands are recorded but never fail.
func (f *Fake) Run(_ context.Context, cmd Command) error {
	f.Commands = append(f.Commands, cmd)
	if cmd.DryRun {
		return nil
	}
	line := strings.Join(cmd.Argv, " ")
	for pattern, err := range f.Fail {
		if strings.Contains(line, pattern) {
			return err
		}
	}
	return nil
}

func (f *Fake) PathExists(path string) bool   { return f.Existing[path] }
func (f *Fake) IsMountPoint(path string) bool { return f.Mounts[path] }
func (f *Fake) DirNonEmpty(path string) bool  { return f.Populated[path] }
func (f *Fake) Glob(pattern string) []string  { return f.Globs[pattern] }
func (f *Fake) EUID() int                     { return f.UID }
func (f *Fake) Now() time.Time                { return f.Clock }

// ReadFile returns the scripted contents for path, or an error if none
// were set.
func (f *Fake) ReadFile(path string) ([]byte, error) {
	data, ok := f.Files[path]
	if !ok {
		return nil, errors.Newf("reading file %s: no such file", path)
	}
	return []byte(data), nil
}

// Lines returns each recorded command as a single space-joined string.
func (f *Fake) Lines() []string {
	lines := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		lines[i] = strings.Join(c.Argv, " ")
	}
	return lines
}

// Ran reports whether any recorded command line contains substr.
func (f *Fake) Ran(substr string) bool {
	for _, line := range f.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
