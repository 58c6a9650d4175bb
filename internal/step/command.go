package step

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// Command runs an arbitrary shell command during the run phase. The
// template may reference bound parameters as ${name}.
type Command struct {
	base
	template string
	params   map[string]string
}

// NewCommand returns a command step for template with the given parameter
// bindings.
func NewCommand(template string, params map[string]string) *Command {
	return &Command{base: newBase(KindCommand), template: template, params: params}
}

// expand substitutes ${name} references. Unknown names expand to the
// empty string.
func (c *Command) expand() string {
	return os.Expand(c.template, func(name string) string {
		return c.params[name]
	})
}

func (c *Command) Run(ctx context.Context, env *Env) error {
	cmd := system.Command{
		// Through the shell: templates rely on quoting, redirection,
		// and substitution.
		Argv:   []string{"sh", "-c", c.expand()},
		Stream: env.Opts.Verbose,
		DryRun: env.Opts.DryRun,
	}
	if err := env.Sys.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, "running %q", c.expand())
	}
	return nil
}

func (c *Command) Describe(*Env) string {
	return "command: " + c.expand()
}
