package redemption

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clarovate/onboarding/internal/auth"
	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/internal/invitations"
	"github.com/clarovate/onboarding/internal/models"
)

// TxFinalizer persists the account and retires the invitation in one
// PostgreSQL transaction.
type TxFinalizer struct {
	pool        *pgxpool.Pool
	accounts    *auth.Repository
	invitations *invitations.Repository
}

// NewTxFinalizer creates a finalizer on pool.
func NewTxFinalizer(pool *pgxpool.Pool) *TxFinalizer {
	return &TxFinalizer{
		pool:        pool,
		accounts:    auth.NewRepository(pool),
		invitations: invitations.NewRepository(pool),
	}
}

// CreateAccountAndRetire deletes inv and inserts account, provided inv still
// holds the token that was presented. Otherwise nothing is written.
func (f *TxFinalizer) CreateAccountAndRetire(ctx context.Context, account *models.Account, inv *models.Invitation) error {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return errs.Storage(fmt.Errorf("begin redemption: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Retire first: a concurrent redemption blocks on the invitation row
	// lock and then finds nothing to delete.
	ok, err := f.invitations.WithTx(tx).Retire(ctx, inv.Email, inv.Token)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidToken
	}
	if err := f.accounts.WithTx(tx).Create(ctx, account); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Storage(fmt.Errorf("commit redemption: %w", err))
	}
	return nil
}
