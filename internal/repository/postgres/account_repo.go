// internal/repository/postgres/account_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"pochasovo-service/internal/domain/account"
	xerrors "pochasovo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OwnerAccountRepository struct {
	db *pgxpool.Pool
}

func NewOwnerAccountRepository(db *pgxpool.Pool) *OwnerAccountRepository {
	return &OwnerAccountRepository{db: db}
}

const accountColumns = `
	id, full_name, real_balance, bonus_balance, trial_activated,
	archived_at, created_at, updated_at
`

func scanAccount(row pgx.Row) (*account.OwnerAccount, error) {
	var acc account.OwnerAccount
	err := row.Scan(
		&acc.ID, &acc.FullName, &acc.RealBalance, &acc.BonusBalance, &acc.TrialActivated,
		&acc.ArchivedAt, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan owner account: %w", err)
	}
	return &acc, nil
}

// FindByID retrieves an owner account by ID
func (r *OwnerAccountRepository) FindByID(ctx context.Context, id int64) (*account.OwnerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM owners WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindForUpdateWithTx locks the owner row for the rest of the transaction.
// Every balance mutation goes through this lock, which is what serializes
// concurrent spends against one account.
func (r *OwnerAccountRepository) FindForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*account.OwnerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM owners WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// UpdateBalancesWithTx writes both balances. Only callable while holding
// the row lock from FindForUpdateWithTx.
func (r *OwnerAccountRepository) UpdateBalancesWithTx(ctx context.Context, tx pgx.Tx, id, realBalance, bonusBalance int64) error {
	query := `
		UPDATE owners
		SET real_balance = $2, bonus_balance = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, id, realBalance, bonusBalance)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// SetTrialActivatedWithTx flips the once-per-lifetime trial flag.
func (r *OwnerAccountRepository) SetTrialActivatedWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	query := `UPDATE owners SET trial_activated = TRUE, updated_at = NOW() WHERE id = $1`
	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set trial flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
