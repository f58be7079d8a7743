package organizations

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
)

// ErrInternalUndeletable is returned when deleting the platform organization.
var ErrInternalUndeletable = errs.New(errs.KindBadRequest, "internal organization can not be deleted")

// Store is the persistence the service needs; Repository implements it.
type Store interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetInternal(ctx context.Context) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Update(ctx context.Context, id uuid.UUID, upd Update, updatedBy string) (*models.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Update holds optional field changes; nil leaves a field as is.
type Update struct {
	Name      *string `json:"organization_name"`
	HQCountry *string `json:"hq_country"`
	ContactNo *string `json:"contact_no"`
	Email     *string `json:"email"`
}

// Service implements organization CRUD and the lookup used by invitations.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates an organization service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ParseID parses an organization reference; malformed input is errs.ErrInvalidReference.
func ParseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, errs.ErrInvalidReference
	}
	return u, nil
}

// FindByID resolves an organization reference given as a string.
func (s *Service) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	orgID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errs.ErrOrganizationNotFound
	}
	return org, nil
}

// List returns all organizations.
func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	return s.store.List(ctx)
}

// Create adds a CLIENT organization. INTERNAL is reserved for EnsureInternal.
func (s *Service) Create(ctx context.Context, org *models.Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" || len(org.Name) > 255 {
		return errs.BadRequest("organization name must be 1-255 characters")
	}
	if org.Type == "" {
		org.Type = models.OrganizationTypeClient
	}
	if org.Type != models.OrganizationTypeClient {
		return errs.BadRequest("only CLIENT organizations can be created")
	}
	if err := s.store.Create(ctx, org); err != nil {
		return err
	}
	s.logger.Info("organization created", zap.String("id", org.ID.String()), zap.String("created_by", org.CreatedBy))
	return nil
}

// Update changes organization fields. Pending invitations keep the name they
// were issued with.
func (s *Service) Update(ctx context.Context, id string, upd Update, updatedBy string) (*models.Organization, error) {
	orgID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" || len(name) > 255 {
			return nil, errs.BadRequest("organization name must be 1-255 characters")
		}
		upd.Name = &name
	}
	org, err := s.store.Update(ctx, orgID, upd, updatedBy)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, errs.ErrOrganizationNotFound
	}
	return org, nil
}

// Delete removes a CLIENT organization.
func (s *Service) Delete(ctx context.Context, id string) error {
	org, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if org.Type == models.OrganizationTypeInternal {
		return ErrInternalUndeletable
	}
	ok, err := s.store.Delete(ctx, org.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrOrganizationNotFound
	}
	s.logger.Info("organization deleted", zap.String("id", org.ID.String()))
	return nil
}

// EnsureInternal creates the platform's INTERNAL organization if missing.
func (s *Service) EnsureInternal(ctx context.Context, name, email string) (*models.Organization, error) {
	existing, err := s.store.GetInternal(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("internal organization already exists", zap.String("id", existing.ID.String()))
		return existing, nil
	}
	org := &models.Organization{
		Name:      name,
		Type:      models.OrganizationTypeInternal,
		Email:     email,
		CreatedBy: "SYSTEM",
	}
	if err := s.store.Create(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info("internal organization successfully created", zap.String("id", org.ID.String()))
	return org, nil
}
