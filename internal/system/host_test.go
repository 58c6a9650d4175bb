package system

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHostRun(t *testing.T) {
	h := NewHost(testLogger())
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		if err := h.Run(ctx, Command{Argv: []string{"true"}}); err != nil {
			t.Fatalf("Run(true) = %v", err)
		}
	})

	t.Run("failure includes output", func(t *testing.T) {
		err := h.Run(ctx, Command{Argv: []string{"sh", "-c", "echo boom >&2; exit 3"}})
		if err == nil {
			t.Fatal("expected error")
		}
		if got := err.Error(); !strings.Contains(got, "boom") {
			t.Errorf("error %q does not include command output", got)
		}
	})

	t.Run("empty argv", func(t *testing.T) {
		if err := h.Run(ctx, Command{}); err == nil {
			t.Fatal("expected error for empty argv")
		}
	})

	t.Run("dry run skips execution", func(t *testing.T) {
		err := h.Run(ctx, Command{Argv: []string{"false"}, DryRun: true})
		if err != nil {
			t.Fatalf("dry run executed the command: %v", err)
		}
	})

	t.Run("input reaches stdin", func(t *testing.T) {
		cmd := Command{
			Argv:  []string{"sh", "-c", `read line && test "$line" = "secret"`},
			Input: "secret\n",
		}
		if err := h.Run(ctx, cmd); err != nil {
			t.Fatalf("stdin payload not delivered: %v", err)
		}
	})
}

func TestHostQueries(t *testing.T) {
	h := NewHost(testLogger())
	dir := t.TempDir()

	if h.IsMountPoint(dir) {
		t.Errorf("IsMountPoint(%q) = true for a plain directory", dir)
	}
	if !h.IsMountPoint("/") {
		t.Error("IsMountPoint(/) = false")
	}

	if h.DirNonEmpty(dir) {
		t.Error("DirNonEmpty reported entries in an empty directory")
	}
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !h.DirNonEmpty(dir) {
		t.Error("DirNonEmpty = false after writing a file")
	}
	if h.DirNonEmpty(file) {
		t.Error("DirNonEmpty = true for a regular file")
	}
	if h.DirNonEmpty(filepath.Join(dir, "missing")) {
		t.Error("DirNonEmpty = true for a missing path")
	}

	if !h.PathExists(file) {
		t.Error("PathExists = false for an existing file")
	}
	if h.PathExists(filepath.Join(dir, "missing")) {
		t.Error("PathExists = true for a missing path")
	}

	got := h.Glob(filepath.Join(dir, "*.txt"))
	if len(got) != 1 || got[0] != file {
		t.Errorf("Glob = %v, want [%s]", got, file)
	}

	if h.EUID() != os.Geteuid() {
		t.Errorf("EUID = %d, want %d", h.EUID(), os.Geteuid())
	}
}
