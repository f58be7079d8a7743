package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/internal/sequence"
)

// AdminSeed describes the administrator created on an empty install.
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// PasswordHasher hashes a plain password for storage.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// BootstrapAdmin creates the first ADMIN account if none exists and a
// password is configured. The ID comes from the user sequence so it can never
// collide with a redeemed account.
func BootstrapAdmin(ctx context.Context, repo *Repository, gen sequence.Generator, hasher PasswordHasher, seed AdminSeed, logger *zap.Logger) error {
	seed.Email = models.NormalizeEmail(seed.Email)
	if seed.Password == "" || seed.Email == "" {
		logger.Info("no admin credentials configured; skipping admin bootstrap")
		return nil
	}
	exists, err := repo.ExistsWithRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("admin already exists")
		return nil
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	n, err := gen.Next(ctx, sequence.User)
	if err != nil {
		return err
	}
	admin := &models.Account{
		ID:           sequence.FormatAccountID(AccountIDPrefix, n),
		Email:        seed.Email,
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("admin successfully created", zap.String("id", admin.ID), zap.String("email", admin.Email))
	return nil
}

// AccountIDPrefix precedes the zero-padded sequence value in account IDs.
const AccountIDPrefix = "USER"
