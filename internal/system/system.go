// Package system isolates every interaction with the host operating system
// behind the [System] interface so that step and engine logic can be tested
// without touching devices, mounts, or external binaries.
//
// All mutations (mounting, device mapping, file shuffling, rsync) go through
// [System.Run] as external commands; the remaining methods are read-only
// queries. [Host] implements the interface against the real OS and [Fake]
// provides a recording double for tests.
package system

import (
	"context"
	"time"
)

// Command describes one external command invocation.
type Command struct {
	// Argv is the full argument vector; Argv[0] is the binary name,
	// resolved through PATH.
	Argv []string

	// Input is piped to the command's stdin when non-empty. It may carry
	// secrets (LUKS key material) and must never be logged.
	Input string

	// Stream connects the command's output to the process's stdout and
	// stderr so long-running transfers show progress. When false, output
	// is captured and reported only on failure.
	Stream bool

	// DryRun logs the command and skips execution.
	DryRun bool
}

// System is the capability surface handed to steps and the engine.
type System interface {
	// Run executes cmd, honoring cmd.DryRun.
	Run(ctx context.Context, cmd Command) error

	// PathExists reports whether path exists.
	PathExists(path string) bool

	// IsMountPoint reports whether path is a filesystem mount point.
	IsMountPoint(path string) bool

	// DirNonEmpty reports whether path is a directory with at least one
	// entry.
	DirNonEmpty(path string) bool

	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)

	// Glob returns the paths matching pattern, in lexical order.
	Glob(pattern string) []string

	// EUID returns the effective user id of the current process.
	EUID() int

	// Now returns the current time.
	Now() time.Time
}
