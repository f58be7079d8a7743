// Package mail turns invitations into email jobs and delivers them.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/pkg/queue"
)

// InvitationSubject is the subject line of invitation emails.
const InvitationSubject = "You're Invited!"

//go:embed templates/*.html
var templatesFS embed.FS

var inviteTemplate = template.Must(template.ParseFS(templatesFS, "templates/invite.html"))

// Invitation is the payload handed to the mail collaborator.
type Invitation struct {
	Email            string
	Role             string
	Link             string
	OrganizationName string
}

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// RenderInvitation renders the invitation template.
func RenderInvitation(inv Invitation) (Message, error) {
	var buf bytes.Buffer
	if err := inviteTemplate.Execute(&buf, inv); err != nil {
		return Message{}, fmt.Errorf("render invite: %w", err)
	}
	return Message{To: inv.Email, Subject: InvitationSubject, HTML: buf.String()}, nil
}

// Enqueuer is the queue operation QueueDispatcher depends on.
type Enqueuer interface {
	EnqueueInvitationEmail(ctx context.Context, payload queue.InvitationEmailPayload) (string, error)
}

// QueueDispatcher hands invitation emails to the email worker through Redis,
// so a slow or failing SMTP server never holds up an invitation write.
type QueueDispatcher struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewQueueDispatcher creates a dispatcher on q.
func NewQueueDispatcher(q Enqueuer, logger *zap.Logger) *QueueDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDispatcher{queue: q, logger: logger}
}

// SendInvitation enqueues the email. Failure to enqueue is errs.KindMailDispatchFailed.
func (d *QueueDispatcher) SendInvitation(ctx context.Context, inv Invitation) error {
	jobID, err := d.queue.EnqueueInvitationEmail(ctx, queue.InvitationEmailPayload{
		RecipientEmail:   inv.Email,
		Role:             inv.Role,
		InviteLink:       inv.Link,
		OrganizationName: inv.OrganizationName,
	})
	if err != nil {
		return errs.Mail(err)
	}
	d.logger.Info("invitation email queued", zap.String("job_id", jobID), zap.String("email", inv.Email))
	return nil
}
