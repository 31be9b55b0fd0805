// internal/domain/promotion/entity.go
package promotion

import (
	"fmt"
	"time"
)

type PackageType string

const (
	PackageBronze PackageType = "bronze"
	PackageSilver PackageType = "silver"
	PackageGold   PackageType = "gold"
)

// PackageDuration is fixed: end_date = start_date + 30 days.
const PackageDuration = 30 * 24 * time.Hour

func ValidPackageType(t PackageType) bool {
	return t == PackageBronze || t == PackageSilver || t == PackageGold
}

// PromotionPackage is a paid, time-boxed claim on a catalog position range
// within one city. At most one unexpired package per listing. The row is
// kept for history once it goes inert.
type PromotionPackage struct {
	ID              int64       `json:"id" db:"id"`
	Reference       string      `json:"reference" db:"reference"`
	ListingID       int64       `json:"listing_id" db:"listing_id"`
	OwnerID         int64       `json:"owner_id" db:"owner_id"`
	City            string      `json:"city" db:"city"`
	PackageType     PackageType `json:"package_type" db:"package_type"`
	PricePaid       int64       `json:"price_paid" db:"price_paid"`
	StartDate       time.Time   `json:"start_date" db:"start_date"`
	EndDate         time.Time   `json:"end_date" db:"end_date"`
	CurrentPosition int         `json:"current_position" db:"current_position"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the package window has already closed.
func (p *PromotionPackage) Expired(now time.Time) bool {
	return !p.EndDate.After(now)
}

// Overlaps reports whether two package windows intersect. The purchase
// guard rejects a new package while an unexpired one exists, so the
// stored windows of one listing never overlap.
func (p *PromotionPackage) Overlaps(o *PromotionPackage) bool {
	return p.StartDate.Before(o.EndDate) && o.StartDate.Before(p.EndDate)
}

// TierConfig is the per-city configuration of one tier: price and the
// position range the tier's packages rotate within.
type TierConfig struct {
	City        string      `json:"city" db:"city"`
	PackageType PackageType `json:"package_type" db:"package_type"`
	Price       int64       `json:"price" db:"price"`
	RangeMin    int         `json:"range_min" db:"range_min"`
	RangeMax    int         `json:"range_max" db:"range_max"`
}

// Slots is how many positions the tier's range holds.
func (t TierConfig) Slots() int {
	return t.RangeMax - t.RangeMin + 1
}

// Contains reports whether pos falls inside the tier's range.
func (t TierConfig) Contains(pos int) bool {
	return pos >= t.RangeMin && pos <= t.RangeMax
}

// CityTiers is the full tier table for one city, keyed by package type.
type CityTiers map[PackageType]TierConfig

// Validate enforces the tier contract for a city: all three tiers present,
// sane ranges, disjoint ranges, and gold numerically better than silver
// better than bronze.
func (ct CityTiers) Validate() error {
	ordered := []PackageType{PackageGold, PackageSilver, PackageBronze}
	prevMax := 0
	for _, pt := range ordered {
		tier, ok := ct[pt]
		if !ok {
			return fmt.Errorf("tier %s missing", pt)
		}
		if tier.RangeMin < 1 || tier.RangeMax < tier.RangeMin {
			return fmt.Errorf("tier %s has invalid range [%d, %d]", pt, tier.RangeMin, tier.RangeMax)
		}
		if tier.Price <= 0 {
			return fmt.Errorf("tier %s has invalid price %d", pt, tier.Price)
		}
		if tier.RangeMin <= prevMax {
			return fmt.Errorf("tier %s range [%d, %d] overlaps or outranks the tier above it", pt, tier.RangeMin, tier.RangeMax)
		}
		prevMax = tier.RangeMax
	}
	return nil
}

// DTOs

type PurchaseRequest struct {
	ListingID   int64       `json:"listing_id" binding:"required"`
	City        string      `json:"city" binding:"required"`
	PackageType PackageType `json:"package_type" binding:"required,oneof=bronze silver gold"`
}

type TierInfo struct {
	Price    int64  `json:"price"`
	Range    string `json:"range"`
	RangeMin int    `json:"range_min"`
	RangeMax int    `json:"range_max"`
}

type CityPromotions struct {
	City     string                   `json:"city"`
	Packages []*PromotionPackage      `json:"packages"`
	Pricing  map[PackageType]TierInfo `json:"pricing"`
}
