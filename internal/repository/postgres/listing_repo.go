// internal/repository/postgres/listing_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/listing"
	xerrors "pochasovo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingRepository struct {
	db *pgxpool.Pool
}

func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `
	id, owner_id, title, city, is_archived,
	subscription_expires_at, purchased_by_owner, is_gift, trial_activated_at,
	created_at, updated_at
`

func scanListing(row pgx.Row) (*listing.Listing, error) {
	var l listing.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.City, &l.IsArchived,
		&l.Subscription.ExpiresAt, &l.Subscription.PurchasedByOwner, &l.Subscription.IsGift, &l.Subscription.TrialActivatedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}
	l.Subscription.ListingID = l.ID
	return &l, nil
}

// FindByID retrieves a listing by ID
func (r *ListingRepository) FindByID(ctx context.Context, id int64) (*listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return scanListing(r.db.QueryRow(ctx, query, id))
}

// FindForUpdateWithTx locks the listing row; subscription mutations are
// per-listing exclusive.
func (r *ListingRepository) FindForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 FOR UPDATE`
	return scanListing(tx.QueryRow(ctx, query, id))
}

// FindByOwner returns the owner's non-archived listings.
func (r *ListingRepository) FindByOwner(ctx context.Context, ownerID int64) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 AND NOT is_archived ORDER BY id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// FindByOwnerForUpdateWithTx locks all of the owner's current listings,
// in id order to keep lock acquisition deterministic. Used by trial
// activation, which extends every listing at once.
func (r *ListingRepository) FindByOwnerForUpdateWithTx(ctx context.Context, tx pgx.Tx, ownerID int64) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 AND NOT is_archived ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock owner listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// VisibleByCity returns the listings the public catalog may show for a
// city: not archived, subscription window still open.
func (r *ListingRepository) VisibleByCity(ctx context.Context, city string, now time.Time) ([]listing.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE city = $1 AND NOT is_archived
		  AND subscription_expires_at IS NOT NULL AND subscription_expires_at > $2
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, city, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// UpdateSubscriptionWithTx writes the subscription window and its
// provenance flags. expiresAt nil clears the window (staff reset).
func (r *ListingRepository) UpdateSubscriptionWithTx(ctx context.Context, tx pgx.Tx, listingID int64, expiresAt *time.Time, purchasedByOwner, isGift bool) error {
	query := `
		UPDATE listings
		SET subscription_expires_at = $2, purchased_by_owner = $3, is_gift = $4, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, listingID, expiresAt, purchasedByOwner, isGift)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// SetTrialActivatedWithTx stamps the listing's trial timestamp.
func (r *ListingRepository) SetTrialActivatedWithTx(ctx context.Context, tx pgx.Tx, listingID int64, at time.Time) error {
	query := `UPDATE listings SET trial_activated_at = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, query, listingID, at); err != nil {
		return fmt.Errorf("failed to stamp trial activation: %w", err)
	}
	return nil
}

func collectListings(rows pgx.Rows) ([]listing.Listing, error) {
	var out []listing.Listing
	for rows.Next() {
		var l listing.Listing
		if err := rows.Scan(
			&l.ID, &l.OwnerID, &l.Title, &l.City, &l.IsArchived,
			&l.Subscription.ExpiresAt, &l.Subscription.PurchasedByOwner, &l.Subscription.IsGift, &l.Subscription.TrialActivatedAt,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		l.Subscription.ListingID = l.ID
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing rows: %w", err)
	}
	return out, nil
}
