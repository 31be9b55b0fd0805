// internal/events/events.go
package events

import "time"

// Event types published on the ledger stream. The catalog collaborator
// consumes these to drop its caches; nothing in this service depends on
// the stream being up.
const (
	TypeTransactionAppended = "transaction.appended"
	TypePackagePurchased    = "promotion.package_purchased"
	TypeRotationCompleted   = "promotion.rotation_completed"
	TypeSubscriptionChanged = "subscription.changed"
)

type LedgerEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	OwnerID   int64     `json:"owner_id,omitempty"`
	ListingID int64     `json:"listing_id,omitempty"`
	City      string    `json:"city,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	At        time.Time `json:"at"`
}
