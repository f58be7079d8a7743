// Package invitations issues, reissues, lists and deletes invitations.
package invitations

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/mail"
	"github.com/clarovate/onboarding/internal/models"
)

// NothingToResend is the Result message when Resend finds no invitation.
const NothingToResend = "No previous invitation found to resend."

// Store is the invitation persistence the service needs.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByEmail(ctx context.Context, email string) (*models.Invitation, error)
	Reissue(ctx context.Context, email, prevToken, token string, expiresAt, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context) ([]*models.Invitation, error)
	Delete(ctx context.Context, email string) (bool, error)
}

// AccountLookup reports existing accounts by email.
type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// OrganizationLookup resolves an organization reference.
type OrganizationLookup interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

// Dispatcher hands an invitation email off for delivery.
type Dispatcher interface {
	SendInvitation(ctx context.Context, inv mail.Invitation) error
}

// Options configures a Service.
type Options struct {
	BaseURL      string
	PlatformName string
	TTL          time.Duration
	ResendTTL    time.Duration
}

// IssueInput is the request to invite one address.
type IssueInput struct {
	Email          string
	Role           models.Role
	Type           models.InvitationType
	OrganizationID string
	CreatedBy      string
}

// Result is returned by Issue and Resend. Sent is false only when Resend had
// nothing to resend.
type Result struct {
	Sent       bool               `json:"sent"`
	Message    string             `json:"message"`
	Invitation *models.Invitation `json:"invitation,omitempty"`
}

// Service is the invitation lifecycle manager.
type Service struct {
	store    Store
	accounts AccountLookup
	orgs     OrganizationLookup
	mailer   Dispatcher
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
	newToken func() (string, error)
}

// NewService creates an invitation service.
func NewService(store Store, accounts AccountLookup, orgs OrganizationLookup, mailer Dispatcher, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 48 * time.Hour
	}
	if opts.ResendTTL <= 0 {
		opts.ResendTTL = 24 * time.Hour
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{
		store:    store,
		accounts: accounts,
		orgs:     orgs,
		mailer:   mailer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		newToken: generateToken,
	}
}

// Issue creates a PENDING invitation and dispatches its email. When dispatch
// fails the invitation stays persisted and both the result and a
// MAIL_DISPATCH_FAILED error are returned.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*Result, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, errs.BadRequest("email is required")
	}
	if !in.Role.Valid() {
		return nil, errs.BadRequest("invalid role")
	}
	typ := in.Type
	if typ == "" {
		typ = models.InvitationTypeClient
	}
	if typ != models.InvitationTypeClient && typ != models.InvitationTypeInternal {
		return nil, errs.BadRequest("invalid invitation type")
	}

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return nil, err
	}
	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.ErrDuplicatePending
	}

	inv := &models.Invitation{
		Email:     email,
		Role:      in.Role,
		Type:      typ,
		Status:    models.InvitationStatusPending,
		CreatedBy: in.CreatedBy,
	}
	if err := s.attachOrganization(ctx, inv, in.OrganizationID); err != nil {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, errs.Internal("failed to generate invitation token", err)
	}
	now := s.now()
	inv.Token = token
	inv.CreatedAt = now
	inv.ExpiresAt = now.Add(s.opts.TTL)
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invitation issued",
		zap.String("email", email), zap.String("role", string(inv.Role)), zap.String("created_by", in.CreatedBy))

	res := &Result{Sent: true, Message: "Invitation sent successfully", Invitation: inv}
	if err := s.dispatch(ctx, inv); err != nil {
		res.Message = "Invitation created but the email could not be dispatched"
		return res, err
	}
	return res, nil
}

// attachOrganization validates the reference and snapshots the name.
// INTERNAL invitations never carry an organization.
func (s *Service) attachOrganization(ctx context.Context, inv *models.Invitation, orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil
	}
	if inv.Type == models.InvitationTypeInternal {
		if _, err := uuid.Parse(orgID); err != nil {
			return errs.ErrInvalidReference
		}
		return nil
	}
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return err
	}
	id := org.ID
	inv.OrganizationID = &id
	inv.OrganizationName = org.Name
	return nil
}

// Resend reissues an expired invitation with a fresh token and a shorter
// deadline. A live invitation blocks resending.
func (s *Service) Resend(ctx context.Context, email, createdBy string) (*Result, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, errs.BadRequest("email is required")
	}
	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return nil, err
	}
	inv, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &Result{Sent: false, Message: NothingToResend}, nil
	}
	now := s.now()
	if !inv.IsExpired(now) {
		return nil, errs.ErrActiveInvitation
	}

	token, err := s.newToken()
	if err != nil {
		return nil, errs.Internal("failed to generate invitation token", err)
	}
	expiresAt := now.Add(s.opts.ResendTTL)
	ok, err := s.store.Reissue(ctx, email, inv.Token, token, expiresAt, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another resend or a redemption changed the row since we read it.
		return nil, errs.ErrActiveInvitation
	}
	inv.Token = token
	inv.ExpiresAt = expiresAt
	inv.Status = models.InvitationStatusPending
	inv.UpdatedAt = now
	s.logger.Info("invitation resent", zap.String("email", email), zap.String("by", createdBy))

	res := &Result{Sent: true, Message: "Invitation resent successfully", Invitation: inv}
	if err := s.dispatch(ctx, inv); err != nil {
		res.Message = "Invitation renewed but the email could not be dispatched"
		return res, err
	}
	return res, nil
}

// List expires stale invitations, then returns all of them newest first.
func (s *Service) List(ctx context.Context) ([]*models.Invitation, error) {
	n, err := s.store.ExpireStale(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.logger.Info("expired stale invitations", zap.Int64("count", n))
	}
	return s.store.List(ctx)
}

// Delete removes the invitation for email and reports whether it existed.
func (s *Service) Delete(ctx context.Context, email string) (bool, error) {
	return s.store.Delete(ctx, models.NormalizeEmail(email))
}

// Link returns the redemption deep link for token.
func (s *Service) Link(token string) string {
	return fmt.Sprintf("%s/invite/%s", s.opts.BaseURL, token)
}

func (s *Service) ensureNotRegistered(ctx context.Context, email string) error {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acc != nil {
		return errs.ErrAlreadyRegistered
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, inv *models.Invitation) error {
	orgName := inv.OrganizationName
	if orgName == "" {
		orgName = s.opts.PlatformName
	}
	err := s.mailer.SendInvitation(ctx, mail.Invitation{
		Email:            inv.Email,
		Role:             string(inv.Role),
		Link:             s.Link(inv.Token),
		OrganizationName: orgName,
	})
	if err != nil {
		s.logger.Error("invitation email dispatch failed", zap.String("email", inv.Email), zap.Error(err))
		if errs.KindOf(err) != errs.KindMailDispatchFailed {
			return errs.Mail(err)
		}
		return err
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
