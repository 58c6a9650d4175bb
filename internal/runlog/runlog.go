// Package runlog appends one dated line per completed backup run to a
// bookkeeping file. The file is plain text, never rewritten, so the
// operator can answer "when did this configuration last run" with nothing
// fancier than tail.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/paths"
)

// timeLayout matches the traditional date(1) output of the run log's
// previous keepers, so existing files stay parseable by the same habits.
const timeLayout = "Mon Jan 02 15:04:05 MST 2006"

// Entry describes one completed run.
type Entry struct {
	// When the run finished.
	Time time.Time

	// Configuration is the configuration name that ran.
	Configuration string

	// Parts are the part names that actually ran.
	Parts []string
}

// Line renders the entry as a single run-log line without the trailing
// newline.
func (e Entry) Line() string {
	fields := append([]string{e.Time.Format(timeLayout), "run", e.Configuration}, e.Parts...)
	return strings.Join(fields, " ")
}

// Append records e at the end of the run log at path, creating the file
// and its directory when missing.
func Append(path string, e Entry) error {
	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return errors.Wrap(err, "creating run log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrap(err, "opening run log")
	}
	if _, err := fmt.Fprintln(f, e.Line()); err != nil {
		f.Close()
		return errors.Wrap(err, "appending run log entry")
	}
	return errors.Wrap(f.Close(), "closing run log")
}
