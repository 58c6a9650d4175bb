// Package notify delivers post-run reports to a local user through
// mail(1). Backup runs usually happen unattended, so the report is the
// only place a failed rsync surfaces before the next disk rotation.
package notify

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/bakman/internal/system"
)

// Report is the post-run summary delivered to the recipient.
type Report struct {
	// Recipient is the local user or address handed to mail(1).
	Recipient string

	// Subject is the mail subject line.
	Subject string

	// Body is the plain-text report, piped to mail's stdin.
	Body string
}

// Send mails the report through the local mail command. Delivery is
// best effort by design; callers log the returned error and move on,
// since a missing MTA must not turn a finished backup into a failure.
func Send(ctx context.Context, sys system.System, r Report) error {
	if r.Recipient == "" {
		return errors.New("no recipient configured")
	}
	cmd := system.Command{
		Argv:  []string{"mail", "-s", r.Subject, r.Recipient},
		Input: r.Body,
	}
	return errors.Wrapf(sys.Run(ctx, cmd), "mailing report to %s", r.Recipient)
}
