// Package prompt implements the interactive confirmation bakman asks for
// before a backup run touches devices.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer asks yes/no questions on an injected reader/writer pair so
// tests can script the answers.
type Confirmer struct {
	reader io.Reader
	writer io.Writer
}

// New creates a Confirmer using stdin and stdout.
func New() *Confirmer {
	return &Confirmer{reader: os.Stdin, writer: os.Stdout}
}

// NewWithIO creates a Confirmer with a custom reader and writer for testing.
func NewWithIO(r io.Reader, w io.Writer) *Confirmer {
	return &Confirmer{reader: r, writer: w}
}

// Confirm asks question and reads one line. Only "y" or "yes" (case
// insensitive) count as consent; an empty answer or end of input is a no.
// Defaulting to no keeps an accidental Enter, or a closed stdin under
// cron, from starting a backup.
func (c *Confirmer) Confirm(question string) (bool, error) {
	fmt.Fprintf(c.writer, "%s [y/N]: ", question)

	reader := bufio.NewReader(c.reader)
	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
