package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/database"
)

const invitationColumns = `email, role, type, organization_id, COALESCE(organization_name,''), token, status,
	created_by, created_at, expires_at, updated_at`

// Repository handles invitation persistence. Email is the primary key, so the
// one-invitation-per-address rule is enforced by the table itself.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an invitations repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	var role, typ, status string
	if err := row.Scan(&inv.Email, &role, &typ, &inv.OrganizationID, &inv.OrganizationName, &inv.Token, &status,
		&inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Role = models.Role(role)
	inv.Type = models.InvitationType(typ)
	inv.Status = models.InvitationStatus(status)
	return &inv, nil
}

// Create inserts inv. An existing row for the email is errs.ErrDuplicatePending.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation) error {
	const q = `INSERT INTO invitations (email, role, type, organization_id, organization_name, token, status, created_by, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, $9, $10, $9)`
	_, err := r.db.Exec(ctx, q, inv.Email, string(inv.Role), string(inv.Type), inv.OrganizationID, inv.OrganizationName,
		inv.Token, string(inv.Status), inv.CreatedBy, inv.CreatedAt, inv.ExpiresAt)
	if database.IsUniqueViolation(err, "invitations_pkey") {
		return errs.ErrDuplicatePending
	}
	if err != nil {
		return errs.Storage(fmt.Errorf("create invitation: %w", err))
	}
	inv.UpdatedAt = inv.CreatedAt
	return nil
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+where+` = $1`, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("get invitation by %s: %w", where, err))
	}
	return inv, nil
}

// GetByEmail returns the invitation for email, or nil if there is none.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	return r.getOne(ctx, "email", email)
}

// GetByToken returns the invitation holding token, or nil if there is none.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return r.getOne(ctx, "token", token)
}

// Reissue replaces the token and deadline and resets status to PENDING, but
// only while the row still carries prevToken. It reports whether it won.
func (r *Repository) Reissue(ctx context.Context, email, prevToken, token string, expiresAt, now time.Time) (bool, error) {
	const q = `UPDATE invitations
		SET token = $3, expires_at = $4, status = 'PENDING', updated_at = $5
		WHERE email = $1 AND token = $2`
	tag, err := r.db.Exec(ctx, q, email, prevToken, token, expiresAt, now)
	if err != nil {
		return false, errs.Storage(fmt.Errorf("reissue invitation: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStale marks every PENDING invitation past its deadline as EXPIRED in
// one statement and returns how many rows changed.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE invitations SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'PENDING' AND expires_at <= $1`
	tag, err := r.db.Exec(ctx, q, now)
	if err != nil {
		return 0, errs.Storage(fmt.Errorf("expire invitations: %w", err))
	}
	return tag.RowsAffected(), nil
}

// List returns all invitations, newest first.
func (r *Repository) List(ctx context.Context) ([]*models.Invitation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC, email`)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("list invitations: %w", err))
	}
	defer rows.Close()
	list := make([]*models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, errs.Storage(fmt.Errorf("scan invitation: %w", err))
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return list, nil
}

// Delete removes the invitation for email and reports whether one existed.
func (r *Repository) Delete(ctx context.Context, email string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invitations WHERE email = $1`, email)
	if err != nil {
		return false, errs.Storage(fmt.Errorf("delete invitation: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// Retire deletes the invitation only if it still holds token. Redemption
// calls it inside the account transaction.
func (r *Repository) Retire(ctx context.Context, email, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invitations WHERE email = $1 AND token = $2`, email, token)
	if err != nil {
		return false, errs.Storage(fmt.Errorf("retire invitation: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}
