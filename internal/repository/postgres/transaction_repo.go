// internal/repository/postgres/transaction_repo.go
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

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, reference, owner_id, amount, type, description, balance_after,
	related_listing_id, gateway_ref, staff_id, created_at
`

func scanTransaction(row pgx.Row) (*account.Transaction, error) {
	var tr account.Transaction
	err := row.Scan(
		&tr.ID, &tr.Reference, &tr.OwnerID, &tr.Amount, &tr.Type, &tr.Description, &tr.BalanceAfter,
		&tr.RelatedListingID, &tr.GatewayRef, &tr.StaffID, &tr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &tr, nil
}

// CreateWithTx appends one transaction within the caller's DB transaction.
// Rows are immutable once created; there is no update path.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, tr *account.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, owner_id, amount, type, description, balance_after,
			related_listing_id, gateway_ref, staff_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		tr.Reference, tr.OwnerID, tr.Amount, tr.Type, tr.Description, tr.BalanceAfter,
		tr.RelatedListingID, tr.GatewayRef, tr.StaffID,
	).Scan(&tr.ID, &tr.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// FindByGatewayRef looks up the transaction a gateway reference already
// produced, making webhook replays idempotent.
func (r *TransactionRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*account.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_ref = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, gatewayRef))
}

// ListByOwner returns a page of the owner's ledger, newest first.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID int64, filters *account.TransactionListFilters) ([]account.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if filters.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, *filters.Type)
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListAllByOwner returns the owner's full ledger in append order for
// replay verification.
func (r *TransactionRepository) ListAllByOwner(ctx context.Context, ownerID int64) ([]account.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]account.Transaction, error) {
	var out []account.Transaction
	for rows.Next() {
		var tr account.Transaction
		if err := rows.Scan(
			&tr.ID, &tr.Reference, &tr.OwnerID, &tr.Amount, &tr.Type, &tr.Description, &tr.BalanceAfter,
			&tr.RelatedListingID, &tr.GatewayRef, &tr.StaffID, &tr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction rows: %w", err)
	}
	return out, nil
}
