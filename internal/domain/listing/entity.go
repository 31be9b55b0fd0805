// internal/domain/listing/entity.go
package listing

import (
	"time"

	"pochasovo-service/internal/domain/subscription"
)

// Listing is the slice of a catalog listing the ledger needs: ownership,
// city scoping and the subscription window. Content, photos and search
// filters belong to the catalog collaborator.
type Listing struct {
	ID         int64     `json:"id" db:"id"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	Title      string    `json:"title" db:"title"`
	City       string    `json:"city" db:"city"`
	IsArchived bool      `json:"is_archived" db:"is_archived"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	Subscription subscription.ListingSubscription `json:"subscription"`
}

// Visible reports whether the listing may appear in the public catalog.
func (l *Listing) Visible(now time.Time) bool {
	return !l.IsArchived && l.Subscription.IsActive(now)
}

// PromotionEligible matches Visible today; kept separate because the
// eligibility gate and the catalog gate are distinct contracts.
func (l *Listing) PromotionEligible(now time.Time) bool {
	return l.Visible(now)
}

// Extendable reports whether subscription time may be added to the
// listing. Archived listings keep their stored window but cannot gain
// days until restored.
func (l *Listing) Extendable() bool {
	return !l.IsArchived
}
