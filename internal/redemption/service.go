// Package redemption turns a valid invitation token into an account.
package redemption

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/auth"
	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/internal/sequence"
)

// MinPasswordLength is the shortest secret Redeem accepts.
const MinPasswordLength = 8

// idAttempts bounds how many sequence values Redeem draws when the
// generated account ID is already taken.
const idAttempts = 3

// InvitationFinder looks invitations up by token.
type InvitationFinder interface {
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
}

// Finalizer atomically persists the account and retires the invitation.
// It returns errs.ErrInvalidToken when the invitation no longer holds the token.
type Finalizer interface {
	CreateAccountAndRetire(ctx context.Context, account *models.Account, inv *models.Invitation) error
}

// RedeemInput is the caller-supplied part of a redemption.
type RedeemInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
}

// Service implements the redemption workflow.
type Service struct {
	invitations InvitationFinder
	seq         sequence.Generator
	hasher      auth.PasswordHasher
	finalizer   Finalizer
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a redemption service.
func NewService(invitations InvitationFinder, seq sequence.Generator, hasher auth.PasswordHasher, finalizer Finalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		invitations: invitations,
		seq:         seq,
		hasher:      hasher,
		finalizer:   finalizer,
		logger:      logger,
		now:         time.Now,
	}
}

// Lookup validates token without consuming it.
func (s *Service) Lookup(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrInvalidToken
	}
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errs.ErrInvalidToken
	}
	if inv.IsExpired(s.now()) {
		return nil, errs.ErrTokenExpired
	}
	return inv, nil
}

// Redeem creates the account granted by token. The sequence value is taken
// before anything is written, so a failed redemption can be retried with the
// same token and a burned sequence value only leaves a gap. An ID that is
// already taken, as after a counter reset, draws the next value.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) (*models.Account, error) {
	if len(in.Password) < MinPasswordLength {
		return nil, errs.BadRequest("password must be at least 8 characters")
	}
	inv, err := s.Lookup(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errs.Internal("failed to hash password", err)
	}
	account := &models.Account{
		Email:        inv.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         inv.Role,
		PasswordHash: hash,
		IsActive:     true,
	}
	for attempt := 1; ; attempt++ {
		n, err := s.seq.Next(ctx, sequence.User)
		if err != nil {
			return nil, err
		}
		account.ID = sequence.FormatAccountID(auth.AccountIDPrefix, n)
		err = s.finalizer.CreateAccountAndRetire(ctx, account, inv)
		if err == nil {
			break
		}
		if errors.Is(err, errs.ErrAccountIDTaken) && attempt < idAttempts {
			s.logger.Warn("account id taken, drawing another", zap.String("user_id", account.ID))
			continue
		}
		s.logger.Warn("redemption failed", zap.String("email", inv.Email), zap.Error(err))
		return nil, err
	}
	s.logger.Info("invitation redeemed", zap.String("email", account.Email), zap.String("user_id", account.ID))
	return account, nil
}
