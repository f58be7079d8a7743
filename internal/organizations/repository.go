package organizations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/pkg/database"
)

const orgColumns = `id, organization_name, type, COALESCE(hq_country,''), COALESCE(contact_no,''), COALESCE(email,''),
	COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

// ErrEmailTaken is returned when another organization already uses the email.
var ErrEmailTaken = errs.New(errs.KindBadRequest, "an organization with this email already exists")

// Repository handles organization persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an organizations repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	var typ string
	if err := row.Scan(&o.ID, &o.Name, &typ, &o.HQCountry, &o.ContactNo, &o.Email, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Type = models.OrganizationType(typ)
	return &o, nil
}

// Create inserts an organization and fills its ID and timestamps.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (organization_name, type, hq_country, contact_no, email, created_by, updated_by)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($6,''))
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, org.Name, string(org.Type), org.HQCountry, org.ContactNo, org.Email, org.CreatedBy).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if database.IsUniqueViolation(err, "organizations_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return errs.Storage(fmt.Errorf("create organization: %w", err))
	}
	org.UpdatedBy = org.CreatedBy
	return nil
}

// GetByID returns an organization by ID, or nil if there is none.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	o, err := scanOrganization(r.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("get organization %s: %w", id, err))
	}
	return o, nil
}

// GetInternal returns the platform's INTERNAL organization, or nil.
func (r *Repository) GetInternal(ctx context.Context) (*models.Organization, error) {
	o, err := scanOrganization(r.db.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE type = 'INTERNAL' ORDER BY created_at LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("get internal organization: %w", err))
	}
	return o, nil
}

// List returns all organizations by name.
func (r *Repository) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY organization_name`)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("list organizations: %w", err))
	}
	defer rows.Close()
	list := make([]*models.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, errs.Storage(fmt.Errorf("scan organization: %w", err))
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err)
	}
	return list, nil
}

// Update applies the non-nil fields of upd and returns the new row, or nil
// when the organization does not exist.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, upd Update, updatedBy string) (*models.Organization, error) {
	const q = `UPDATE organizations SET
			organization_name = COALESCE($2, organization_name),
			hq_country = COALESCE($3, hq_country),
			contact_no = COALESCE($4, contact_no),
			email = COALESCE($5, email),
			updated_by = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orgColumns
	o, err := scanOrganization(r.db.QueryRow(ctx, q, id, upd.Name, upd.HQCountry, upd.ContactNo, upd.Email, updatedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if database.IsUniqueViolation(err, "organizations_email_key") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("update organization %s: %w", id, err))
	}
	return o, nil
}

// Delete removes a CLIENT organization. It reports false when no such row exists.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1 AND type <> 'INTERNAL'`, id)
	if err != nil {
		return false, errs.Storage(fmt.Errorf("delete organization %s: %w", id, err))
	}
	return tag.RowsAffected() == 1, nil
}
