package system

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
)

// Host is the real [System]: commands run through os/exec and queries hit
// the local filesystem.
type Host struct {
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewHost returns a Host that logs command activity to log.
func NewHost(log *slog.Logger) *Host {
	return &Host{log: log, stdout: os.Stdout, stderr: os.Stderr}
}

// Run executes cmd. Captured output is folded into the returned error so
// failures from mount, cryptsetup, rsync and friends stay diagnosable.
func (h *Host) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Argv) == 0 {
		return errors.New("empty command")
	}
	line := strings.Join(cmd.Argv, " ")
	if cmd.DryRun {
		h.log.Info("dry run, command skipped", "command", line)
		return nil
	}
	h.log.Debug("running command", "command", line)

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	if cmd.Input != "" {
		c.Stdin = strings.NewReader(cmd.Input)
	}
	if cmd.Stream {
		c.Stdout = h.stdout
		c.Stderr = h.stderr
		if err := c.Run(); err != nil {
			return errors.Wrap(err, cmd.Argv[0])
		}
		return nil
	}
	out, err := c.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return errors.Wrapf(err, "%s: %s", cmd.Argv[0], msg)
		}
		return errors.Wrap(err, cmd.Argv[0])
	}
	return nil
}

// PathExists reports whether path exists.
func (h *Host) PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsMountPoint reports whether path is a mount point, determined by
// comparing its device id with its parent's.
func (h *Host) IsMountPoint(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	parent, err := os.Stat(filepath.Join(path, ".."))
	if err != nil {
		return false
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	pst, pok := parent.Sys().(*syscall.Stat_t)
	if !ok || !pok {
		return false
	}
	// Same inode means path is "/" or otherwise its own parent.
	return st.Dev != pst.Dev || st.Ino == pst.Ino
}

// DirNonEmpty reports whether path is a directory containing at least one
// entry.
func (h *Host) DirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// ReadFile returns the contents of path.
func (h *Host) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	return data, nil
}

// Glob returns the paths matching pattern. Malformed patterns match
// nothing.
func (h *Host) Glob(pattern string) []string {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return matches
}

// EUID returns the effective user id of the current process.
func (h *Host) EUID() int { return os.Geteuid() }

// Now returns the current wall-clock time.
func (h *Host) Now() time.Time { return time.Now() }
