// Package worker runs background jobs taken from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/mail"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/queue"
)

// JobQueue is the subset of queue.Queue the processor uses.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration, keys ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogStore records delivery attempts.
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor renders and sends queued invitation emails.
type EmailProcessor struct {
	queue   JobQueue
	sender  mail.Sender
	logs    LogStore
	logger  *zap.Logger
	poll    time.Duration
	backoff time.Duration
	now     func() time.Time
}

// NewEmailProcessor creates an email processor. logs may be nil.
func NewEmailProcessor(q JobQueue, sender mail.Sender, logs LogStore, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		queue:   q,
		sender:  sender,
		logs:    logs,
		logger:  logger,
		poll:    5 * time.Second,
		backoff: queue.RetryBackoff,
		now:     time.Now,
	}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInvitationEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InvitationEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	msg, err := mail.RenderInvitation(mail.Invitation{
		Email:            payload.RecipientEmail,
		Role:             payload.Role,
		Link:             payload.InviteLink,
		OrganizationName: payload.OrganizationName,
	})
	if err != nil {
		return err
	}

	sendErr := p.sender.Send(ctx, msg)
	p.record(ctx, job, msg, sendErr)
	if sendErr != nil {
		return sendErr
	}
	p.logger.Info("invitation email sent", zap.String("job_id", job.ID), zap.String("to", msg.To))
	return nil
}

func (p *EmailProcessor) record(ctx context.Context, job *queue.Job, msg mail.Message, sendErr error) {
	if p.logs == nil {
		return
	}
	el := &models.EmailLog{
		JobID:          job.ID,
		EmailType:      models.EmailTypeInvitation,
		RecipientEmail: msg.To,
		Subject:        msg.Subject,
		Status:         models.EmailLogStatusSent,
		Attempt:        job.Attempt + 1,
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		sent := p.now()
		el.SentAt = &sent
	}
	if err := p.logs.Create(ctx, el); err != nil {
		p.logger.Warn("email log write failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// RunOnce waits up to the poll interval for one job and processes it.
// It reports whether a job was taken.
func (p *EmailProcessor) RunOnce(ctx context.Context) (bool, error) {
	job, err := p.queue.Dequeue(ctx, p.poll, queue.QueueEmails)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	if job == nil {
		return false, nil
	}
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	if err := p.Process(ctx, job); err != nil {
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		if reErr := p.queue.Retry(ctx, job); reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
		return true, err
	}
	return true, nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	p.logger.Info("email worker started", zap.String("queue", queue.QueueEmails))
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-time.After(p.backoff):
			}
		}
	}
}
