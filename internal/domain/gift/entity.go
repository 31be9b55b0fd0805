// internal/domain/gift/entity.go
package gift

import (
	"database/sql"
	"time"

	xerrors "pochasovo-service/internal/pkg/errors"
)

type GiftType string

const (
	// GiftSubscriptionDays extends the target listing's subscription by
	// gift_value days on activation.
	GiftSubscriptionDays GiftType = "subscription_days"
	// GiftBonusBalance credits gift_value to the owner's bonus balance on
	// activation.
	GiftBonusBalance GiftType = "bonus_balance"
)

func ValidGiftType(t GiftType) bool {
	return t == GiftSubscriptionDays || t == GiftBonusBalance
}

type GiftStatus string

const (
	StatusPending   GiftStatus = "pending"
	StatusActivated GiftStatus = "activated"
	StatusExpired   GiftStatus = "expired"
)

// Gift is a pending-until-activated entitlement. It transitions
// pending -> activated exactly once; the activation is the only write path
// that mutates a subscription or an account on the gift's behalf.
type Gift struct {
	ID               int64         `json:"id" db:"id"`
	Reference        string        `json:"reference" db:"reference"`
	OwnerID          int64         `json:"owner_id" db:"owner_id"`
	ListingID        sql.NullInt64 `json:"listing_id,omitempty" db:"listing_id"`
	GiftType         GiftType      `json:"gift_type" db:"gift_type"`
	GiftValue        int64         `json:"gift_value" db:"gift_value"`
	Description      string        `json:"description" db:"description"`
	Status           GiftStatus    `json:"status" db:"status"`
	CreatedByStaffID sql.NullInt64 `json:"created_by_staff_id,omitempty" db:"created_by_staff_id"`
	ExpiresAt        sql.NullTime  `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	ActivatedAt      sql.NullTime  `json:"activated_at,omitempty" db:"activated_at"`
}

// TTLExpired reports whether an optional per-gift TTL has lapsed.
func (g *Gift) TTLExpired(now time.Time) bool {
	return g.ExpiresAt.Valid && !g.ExpiresAt.Time.After(now)
}

// CanActivate checks the pending -> activated transition. A nil error
// means the flip may proceed; otherwise the gift is in a terminal state.
func (g *Gift) CanActivate(now time.Time) error {
	switch {
	case g.Status == StatusActivated:
		return xerrors.ErrGiftAlreadyActivated
	case g.Status == StatusExpired || g.TTLExpired(now):
		return xerrors.ErrGiftExpired
	}
	return nil
}

// DTOs

type SendGiftRequest struct {
	OwnerID     int64    `json:"owner_id" binding:"required"`
	ListingID   *int64   `json:"listing_id"`
	GiftType    GiftType `json:"gift_type" binding:"required,oneof=subscription_days bonus_balance"`
	GiftValue   int64    `json:"gift_value" binding:"required,gt=0"`
	Description string   `json:"description"`
	TTLDays     int      `json:"ttl_days" binding:"min=0"`
}

type ActivationResult struct {
	GiftID       int64      `json:"gift_id"`
	GiftType     GiftType   `json:"gift_type"`
	NewExpiresAt *time.Time `json:"new_expires_at,omitempty"`
	BonusBalance *int64     `json:"bonus_balance,omitempty"`
}

type TrialResult struct {
	OwnerID          int64   `json:"owner_id"`
	Days             int     `json:"days"`
	ExtendedListings []int64 `json:"extended_listings"`
}
