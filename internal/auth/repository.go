package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/database"
)

const accountColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`

// Repository handles account persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an account repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var role string
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

// GetByID returns an account by ID, or nil if there is none.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("get user %s: %w", id, err))
	}
	return a, nil
}

// GetByEmail returns an account by email, or nil if there is none.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("get user by email: %w", err))
	}
	return a, nil
}

// ExistsWithRole reports whether any account has role.
func (r *Repository) ExistsWithRole(ctx context.Context, role models.Role) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, string(role)).Scan(&ok); err != nil {
		return false, errs.Storage(fmt.Errorf("check role %s: %w", role, err))
	}
	return ok, nil
}

// List returns all accounts ordered by ID.
func (r *Repository) List(ctx context.Context) ([]models.AccountPublic, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()
	list := make([]models.AccountPublic, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, errs.Storage(fmt.Errorf("scan user: %w", err))
		}
		list = append(list, a.ToPublic())
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return list, nil
}

// Create inserts a new account. The caller supplies the ID. A duplicate email
// is errs.ErrAlreadyRegistered and a duplicate ID is errs.ErrAccountIDTaken.
func (r *Repository) Create(ctx context.Context, a *models.Account) error {
	const q = `INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING is_active, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, string(a.Role)).
		Scan(&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if database.IsUniqueViolation(err, "users_email_key") {
		return errs.ErrAlreadyRegistered
	}
	if database.IsUniqueViolation(err, "users_pkey") {
		return errs.ErrAccountIDTaken
	}
	if err != nil {
		return errs.Storage(fmt.Errorf("create user %s: %w", a.ID, err))
	}
	return nil
}

// MaxAccountNumber returns the largest numeric suffix among IDs of the form
// prefix + digits, or 0 when there are none.
func (r *Repository) MaxAccountNumber(ctx context.Context, prefix string) (int64, error) {
	const q = `SELECT COALESCE(MAX(SUBSTRING(id FROM $2)::BIGINT), 0)
		FROM users WHERE id ~ ('^' || $1 || '[0-9]+$')`
	var n int64
	if err := r.db.QueryRow(ctx, q, prefix, len(prefix)+1).Scan(&n); err != nil {
		return 0, errs.Storage(fmt.Errorf("max account number: %w", err))
	}
	return n, nil
}

// SetActive toggles login access for an account.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return false, errs.Storage(fmt.Errorf("set active %s: %w", id, err))
	}
	return tag.RowsAffected() == 1, nil
}
