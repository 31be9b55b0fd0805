// internal/repository/postgres/gift_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/gift"
	xerrors "pochasovo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GiftRepository struct {
	db *pgxpool.Pool
}

func NewGiftRepository(db *pgxpool.Pool) *GiftRepository {
	return &GiftRepository{db: db}
}

const giftColumns = `
	id, reference, owner_id, listing_id, gift_type, gift_value, description,
	status, created_by_staff_id, expires_at, created_at, activated_at
`

func scanGift(row pgx.Row) (*gift.Gift, error) {
	var g gift.Gift
	err := row.Scan(
		&g.ID, &g.Reference, &g.OwnerID, &g.ListingID, &g.GiftType, &g.GiftValue, &g.Description,
		&g.Status, &g.CreatedByStaffID, &g.ExpiresAt, &g.CreatedAt, &g.ActivatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan gift: %w", err)
	}
	return &g, nil
}

// CreateWithTx inserts a pending gift.
func (r *GiftRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, g *gift.Gift) error {
	query := `
		INSERT INTO gifts (
			reference, owner_id, listing_id, gift_type, gift_value, description,
			status, created_by_staff_id, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		g.Reference, g.OwnerID, g.ListingID, g.GiftType, g.GiftValue, g.Description,
		g.Status, g.CreatedByStaffID, g.ExpiresAt,
	).Scan(&g.ID, &g.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	return nil
}

// FindForUpdateWithTx locks the gift row for the activation
// check-and-set.
func (r *GiftRepository) FindForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*gift.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts WHERE id = $1 FOR UPDATE`
	return scanGift(tx.QueryRow(ctx, query, id))
}

// MarkActivatedWithTx flips pending -> activated. The WHERE clause makes
// the flip a true compare-and-set even without the row lock.
func (r *GiftRepository) MarkActivatedWithTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error {
	query := `UPDATE gifts SET status = $2, activated_at = $3 WHERE id = $1 AND status = $4`
	tag, err := tx.Exec(ctx, query, id, gift.StatusActivated, at, gift.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark gift activated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrGiftAlreadyActivated
	}
	return nil
}

// ListPendingByOwner returns the gifts an owner can still activate.
func (r *GiftRepository) ListPendingByOwner(ctx context.Context, ownerID int64) ([]gift.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts WHERE owner_id = $1 AND status = 'pending' ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending gifts: %w", err)
	}
	defer rows.Close()

	var out []gift.Gift
	for rows.Next() {
		var g gift.Gift
		if err := rows.Scan(
			&g.ID, &g.Reference, &g.OwnerID, &g.ListingID, &g.GiftType, &g.GiftValue, &g.Description,
			&g.Status, &g.CreatedByStaffID, &g.ExpiresAt, &g.CreatedAt, &g.ActivatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan gift row: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gift rows: %w", err)
	}
	return out, nil
}

// HasPendingOfTypeWithTx guards against a duplicate staff gift of the
// same type while one is still pending for the listing.
func (r *GiftRepository) HasPendingOfTypeWithTx(ctx context.Context, tx pgx.Tx, listingID int64, giftType gift.GiftType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM gifts WHERE listing_id = $1 AND gift_type = $2 AND status = 'pending')`

	var exists bool
	if err := tx.QueryRow(ctx, query, listingID, giftType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending gifts: %w", err)
	}
	return exists, nil
}

// ExpireDue sweeps pending gifts whose TTL has lapsed.
func (r *GiftRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE gifts SET status = 'expired' WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire gifts: %w", err)
	}
	return tag.RowsAffected(), nil
}
