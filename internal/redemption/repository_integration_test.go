//go:build integration

package redemption

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clarovate/onboarding/internal/auth"
	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/invitations"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/internal/sequence"
	"github.com/clarovate/onboarding/internal/testutil"
	"github.com/clarovate/onboarding/pkg/utils"
)

func TestRedeemAgainstPostgres(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()
	invRepo := invitations.NewRepository(pool)
	accounts := auth.NewRepository(pool)

	now := time.Now().UTC()
	require.NoError(t, invRepo.Create(ctx, &models.Invitation{
		Email: "a@x.com", Role: models.RoleUser, Type: models.InvitationTypeClient, Token: "tok-a",
		Status: models.InvitationStatusPending, CreatedBy: "USER00", CreatedAt: now, ExpiresAt: now.Add(48 * time.Hour),
	}))

	svc := NewService(invRepo, sequence.NewPostgresGenerator(pool), utils.NewHasher(bcrypt.MinCost), NewTxFinalizer(pool), nil)
	acc, err := svc.Redeem(ctx, RedeemInput{Token: "tok-a", Password: "password1", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "USER01", acc.ID)

	stored, err := accounts.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "USER01", stored.ID)

	gone, err := invRepo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = svc.Redeem(ctx, RedeemInput{Token: "tok-a", Password: "password1", FirstName: "Ada"})
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestFinalizerRollsBackOnStaleToken(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()
	invRepo := invitations.NewRepository(pool)
	accounts := auth.NewRepository(pool)

	now := time.Now().UTC()
	inv := &models.Invitation{
		Email: "b@y.com", Role: models.RoleUser, Type: models.InvitationTypeClient, Token: "tok-new",
		Status: models.InvitationStatusPending, CreatedBy: "USER00", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, invRepo.Create(ctx, inv))

	stale := *inv
	stale.Token = "tok-old"
	err := NewTxFinalizer(pool).CreateAccountAndRetire(ctx, &models.Account{
		ID: "USER07", Email: "b@y.com", Role: models.RoleUser, PasswordHash: "x",
	}, &stale)
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	acc, err := accounts.GetByID(ctx, "USER07")
	require.NoError(t, err)
	assert.Nil(t, acc)
	still, err := invRepo.GetByEmail(ctx, "b@y.com")
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestConcurrentRedeemAgainstPostgres(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()
	invRepo := invitations.NewRepository(pool)

	now := time.Now().UTC()
	require.NoError(t, invRepo.Create(ctx, &models.Invitation{
		Email: "race@x.com", Role: models.RoleUser, Type: models.InvitationTypeClient, Token: "tok-race",
		Status: models.InvitationStatusPending, CreatedBy: "USER00", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	svc := NewService(invRepo, sequence.NewPostgresGenerator(pool), utils.NewHasher(bcrypt.MinCost), NewTxFinalizer(pool), nil)

	const n = 8
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Redeem(ctx, RedeemInput{Token: "tok-race", Password: "password1", FirstName: "R"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrInvalidToken)
	}
	assert.Equal(t, 1, ok)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = 'race@x.com'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFinalizerRollsBackOnTakenAccountID(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()
	invRepo := invitations.NewRepository(pool)
	accounts := auth.NewRepository(pool)

	require.NoError(t, accounts.Create(ctx, &models.Account{
		ID: "USER01", Email: "first@x.com", Role: models.RoleAdmin, PasswordHash: "x", IsActive: true,
	}))
	now := time.Now().UTC()
	inv := &models.Invitation{
		Email: "c@x.com", Role: models.RoleUser, Type: models.InvitationTypeClient, Token: "tok-c",
		Status: models.InvitationStatusPending, CreatedBy: "USER01", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, invRepo.Create(ctx, inv))

	err := NewTxFinalizer(pool).CreateAccountAndRetire(ctx, &models.Account{
		ID: "USER01", Email: "c@x.com", Role: models.RoleUser, PasswordHash: "x",
	}, inv)
	assert.ErrorIs(t, err, errs.ErrAccountIDTaken)

	still, err := invRepo.GetByEmail(ctx, "c@x.com")
	require.NoError(t, err)
	assert.NotNil(t, still)
}
