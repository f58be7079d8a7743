package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType identifies the template an email was rendered from.
const (
	EmailTypeInvitation = "invitation"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one delivery attempt made by the email worker.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	JobID          string     `json:"job_id"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	Attempt        int        `json:"attempt"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
