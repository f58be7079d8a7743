package emaillogs

import (
	"context"
	"fmt"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/database"
)

// DefaultLimit caps List when the caller does not ask for a size.
const DefaultLimit = 100

// Repository handles email_logs persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create records one delivery attempt and fills its ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (job_id, email_type, recipient_email, subject, status, attempt, sent_at, error_message)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7, NULLIF($8,''))
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, el.JobID, el.EmailType, el.RecipientEmail, el.Subject, el.Status, el.Attempt, el.SentAt, el.ErrorMessage).
		Scan(&el.ID, &el.CreatedAt)
	if err != nil {
		return errs.Storage(fmt.Errorf("create email log: %w", err))
	}
	return nil
}

// List returns email logs newest first. An empty recipient lists all.
func (r *Repository) List(ctx context.Context, recipient string, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	const q = `SELECT id, job_id, email_type, recipient_email, COALESCE(subject,''), status, attempt, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs
		WHERE $1 = '' OR recipient_email = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, q, recipient, limit)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("list email logs: %w", err))
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.JobID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &el.Attempt, &el.SentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, errs.Storage(fmt.Errorf("scan email log: %w", err))
		}
		list = append(list, &el)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return list, nil
}
