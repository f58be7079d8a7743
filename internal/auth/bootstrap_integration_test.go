//go:build integration

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/internal/sequence"
	"github.com/clarovate/onboarding/internal/testutil"
	"github.com/clarovate/onboarding/pkg/utils"
)

func TestBootstrapAdminOnce(t *testing.T) {
	pool := testutil.StartPostgres(t)
	repo := NewRepository(pool)
	gen := sequence.NewPostgresGenerator(pool)
	hasher := utils.NewHasher(bcrypt.MinCost)
	ctx := context.Background()
	seed := AdminSeed{Email: " Admin@Clarovate.IO ", Password: "s3cret-pass", FirstName: "Admin"}

	require.NoError(t, BootstrapAdmin(ctx, repo, gen, hasher, seed, zap.NewNop()))
	require.NoError(t, BootstrapAdmin(ctx, repo, gen, hasher, seed, zap.NewNop()))

	admin, err := repo.GetByEmail(ctx, "admin@clarovate.io")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "USER01", admin.ID)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, hasher.Check("s3cret-pass", admin.PasswordHash))

	next, err := gen.Next(ctx, sequence.User)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	err = repo.Create(ctx, &models.Account{ID: "USER09", Email: "admin@clarovate.io", Role: models.RoleUser, PasswordHash: "x"})
	assert.ErrorIs(t, err, errs.ErrAlreadyRegistered)
}

func TestRepositoryAccountIDs(t *testing.T) {
	pool := testutil.StartPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	top, err := repo.MaxAccountNumber(ctx, AccountIDPrefix)
	require.NoError(t, err)
	assert.Equal(t, int64(0), top)

	for _, a := range []models.Account{
		{ID: "USER01", Email: "a@x.com"},
		{ID: "USER12", Email: "b@x.com"},
		{ID: "USER0003", Email: "c@x.com"},
	} {
		a.Role, a.PasswordHash = models.RoleUser, "x"
		require.NoError(t, repo.Create(ctx, &a))
	}
	top, err = repo.MaxAccountNumber(ctx, AccountIDPrefix)
	require.NoError(t, err)
	assert.Equal(t, int64(12), top)

	err = repo.Create(ctx, &models.Account{ID: "USER12", Email: "d@x.com", Role: models.RoleUser, PasswordHash: "x"})
	assert.ErrorIs(t, err, errs.ErrAccountIDTaken)
	assert.Equal(t, errs.KindAccountIDTaken, errs.KindOf(err))
}
