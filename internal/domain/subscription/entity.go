// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"
)

type Funding string

const (
	FundingOwnerBalance Funding = "owner_balance"
	FundingGift         Funding = "gift"
	FundingStaffGrant   Funding = "staff_grant"
)

// ListingSubscription is the per-listing visibility window. expires_at in
// the past (or NULL) means the listing is hidden from the public catalog
// and ineligible for promotion; expiry is detected lazily on read, no
// forced transition exists.
type ListingSubscription struct {
	ListingID        int64        `json:"listing_id" db:"listing_id"`
	ExpiresAt        sql.NullTime `json:"expires_at" db:"subscription_expires_at"`
	PurchasedByOwner bool         `json:"purchased_by_owner" db:"purchased_by_owner"`
	IsGift           bool         `json:"is_gift" db:"is_gift"`
	TrialActivatedAt sql.NullTime `json:"trial_activated_at,omitempty" db:"trial_activated_at"`
}

// IsActive reports whether the listing is publicly visible at now.
func (s *ListingSubscription) IsActive(now time.Time) bool {
	return s.ExpiresAt.Valid && s.ExpiresAt.Time.After(now)
}

// ExtendFrom banks unused time: the new expiry is max(now, current) + days,
// never now + days alone.
func (s *ListingSubscription) ExtendFrom(now time.Time, days int) time.Time {
	base := now
	if s.IsActive(now) {
		base = s.ExpiresAt.Time
	}
	return base.AddDate(0, 0, days)
}

// DaysRemaining is ceil((expires_at - now) / 24h), floored at 0.
func (s *ListingSubscription) DaysRemaining(now time.Time) int {
	if !s.IsActive(now) {
		return 0
	}
	left := s.ExpiresAt.Time.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Resettable reports whether staff may wipe the current period. Periods
// the owner paid for, or that came from a gift, are protected.
func (s *ListingSubscription) Resettable() bool {
	return !s.PurchasedByOwner && !s.IsGift
}

// DTOs

type ExtendRequest struct {
	Days    int     `json:"days" binding:"required,gt=0"`
	Funding Funding `json:"funding" binding:"required,oneof=owner_balance gift staff_grant"`
}

type SubscriptionInfo struct {
	ListingID     int64      `json:"listing_id"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DaysRemaining int        `json:"days_remaining"`
	Prices        TermPrices `json:"prices"`
}

// TermPrices mirrors the purchase terms offered to owners.
type TermPrices struct {
	Days30 int64 `json:"30_days"`
	Days90 int64 `json:"90_days"`
}
