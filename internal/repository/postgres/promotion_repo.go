// internal/repository/postgres/promotion_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/promotion"
	xerrors "pochasovo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PromotionRepository struct {
	db *pgxpool.Pool
}

func NewPromotionRepository(db *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{db: db}
}

const packageColumns = `
	id, reference, listing_id, owner_id, city, package_type, price_paid,
	start_date, end_date, current_position, created_at, updated_at
`

// CreateWithTx inserts a freshly purchased package.
func (r *PromotionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *promotion.PromotionPackage) error {
	query := `
		INSERT INTO promotion_packages (
			reference, listing_id, owner_id, city, package_type, price_paid,
			start_date, end_date, current_position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx, query,
		p.Reference, p.ListingID, p.OwnerID, p.City, p.PackageType, p.PricePaid,
		p.StartDate, p.EndDate, p.CurrentPosition,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create promotion package: %w", err)
	}
	return nil
}

// FindActiveByListingWithTx returns the listing's unexpired package, if
// any. Runs inside the purchase transaction, after the listing row lock,
// so two concurrent purchases cannot both see "no package".
func (r *PromotionRepository) FindActiveByListingWithTx(ctx context.Context, tx pgx.Tx, listingID int64, now time.Time) (*promotion.PromotionPackage, error) {
	query := `
		SELECT ` + packageColumns + `
		FROM promotion_packages
		WHERE listing_id = $1 AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1
	`

	var p promotion.PromotionPackage
	err := tx.QueryRow(ctx, query, listingID, now).Scan(
		&p.ID, &p.Reference, &p.ListingID, &p.OwnerID, &p.City, &p.PackageType, &p.PricePaid,
		&p.StartDate, &p.EndDate, &p.CurrentPosition, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active package: %w", err)
	}
	return &p, nil
}

// ActiveByCity returns the city's unexpired packages whose listing still
// has a live subscription and is not archived, exactly the daily
// rotation pool and the promoted half of the catalog projection.
func (r *PromotionRepository) ActiveByCity(ctx context.Context, city string, now time.Time) ([]*promotion.PromotionPackage, error) {
	query := `
		SELECT pp.id, pp.reference, pp.listing_id, pp.owner_id, pp.city, pp.package_type, pp.price_paid,
		       pp.start_date, pp.end_date, pp.current_position, pp.created_at, pp.updated_at
		FROM promotion_packages pp
		JOIN listings l ON l.id = pp.listing_id
		WHERE pp.city = $1
		  AND pp.end_date > $2
		  AND NOT l.is_archived
		  AND l.subscription_expires_at IS NOT NULL AND l.subscription_expires_at > $2
		ORDER BY pp.start_date ASC, pp.id ASC
	`

	rows, err := r.db.Query(ctx, query, city, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active packages: %w", err)
	}
	defer rows.Close()

	var out []*promotion.PromotionPackage
	for rows.Next() {
		var p promotion.PromotionPackage
		if err := rows.Scan(
			&p.ID, &p.Reference, &p.ListingID, &p.OwnerID, &p.City, &p.PackageType, &p.PricePaid,
			&p.StartDate, &p.EndDate, &p.CurrentPosition, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read package rows: %w", err)
	}
	return out, nil
}

// UpdatePositionWithTx moves one package to its new daily position.
func (r *PromotionRepository) UpdatePositionWithTx(ctx context.Context, tx pgx.Tx, packageID int64, position int) error {
	query := `UPDATE promotion_packages SET current_position = $2, updated_at = NOW() WHERE id = $1`
	tag, err := tx.Exec(ctx, query, packageID, position)
	if err != nil {
		return fmt.Errorf("failed to update package position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// CountActiveInTierWithTx counts the tier's live packages in a city, used
// to cap sales at the tier's slot capacity.
func (r *PromotionRepository) CountActiveInTierWithTx(ctx context.Context, tx pgx.Tx, city string, tier promotion.PackageType, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM promotion_packages WHERE city = $1 AND package_type = $2 AND end_date > $3`

	var n int
	if err := tx.QueryRow(ctx, query, city, tier, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active packages: %w", err)
	}
	return n, nil
}

// CitiesWithActivePackages lists the cities the daily rotation must visit.
func (r *PromotionRepository) CitiesWithActivePackages(ctx context.Context, now time.Time) ([]string, error) {
	query := `SELECT DISTINCT city FROM promotion_packages WHERE end_date > $1 ORDER BY city`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list rotation cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cities: %w", err)
	}
	return cities, nil
}

// Tiers loads a city's tier configuration. Missing cities return an
// empty map; the service falls back to configured defaults.
func (r *PromotionRepository) Tiers(ctx context.Context, city string) (promotion.CityTiers, error) {
	query := `SELECT city, package_type, price, range_min, range_max FROM city_tiers WHERE city = $1`

	rows, err := r.db.Query(ctx, query, city)
	if err != nil {
		return nil, fmt.Errorf("failed to load city tiers: %w", err)
	}
	defer rows.Close()

	tiers := make(promotion.CityTiers)
	for rows.Next() {
		var t promotion.TierConfig
		if err := rows.Scan(&t.City, &t.PackageType, &t.Price, &t.RangeMin, &t.RangeMax); err != nil {
			return nil, fmt.Errorf("failed to scan tier row: %w", err)
		}
		tiers[t.PackageType] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tier rows: %w", err)
	}
	return tiers, nil
}
