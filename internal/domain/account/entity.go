// internal/domain/account/entity.go
package account

import (
	"database/sql"
	"time"
)

type TransactionType string

const (
	TransactionTopUp                TransactionType = "top_up"
	TransactionPromotionPurchase    TransactionType = "promotion_purchase"
	TransactionSubscriptionPurchase TransactionType = "subscription_purchase"
	TransactionBonusGrant           TransactionType = "bonus_grant"
	TransactionGiftActivation       TransactionType = "gift_activation"
	TransactionRefund               TransactionType = "refund"
)

type BalanceTarget string

const (
	BalanceReal  BalanceTarget = "real"
	BalanceBonus BalanceTarget = "bonus"
)

// OwnerAccount holds the two owner balances, in integer minor units.
// Mutated only through transaction appends; archived with the owner,
// never deleted.
type OwnerAccount struct {
	ID             int64        `json:"id" db:"id"`
	FullName       string       `json:"full_name" db:"full_name"`
	RealBalance    int64        `json:"real_balance" db:"real_balance"`
	BonusBalance   int64        `json:"bonus_balance" db:"bonus_balance"`
	TrialActivated bool         `json:"trial_activated" db:"trial_activated"`
	ArchivedAt     sql.NullTime `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// Spendable is the total the owner can pay with right now.
func (a *OwnerAccount) Spendable() int64 {
	return a.RealBalance + a.BonusBalance
}

// TrialAvailable reports whether the owner can still claim the one-time
// trial. The flag only ever flips to true, so a second claim is
// rejected for the lifetime of the account.
func (a *OwnerAccount) TrialAvailable() bool {
	return !a.TrialActivated
}

// SpendSplit is how a spend was taken from the two balances. Bonus is
// always drained first, the remainder comes from the real balance.
type SpendSplit struct {
	FromBonus int64 `json:"from_bonus"`
	FromReal  int64 `json:"from_real"`
}

// SplitSpend computes the bonus-first split for a spend of total against
// the account's current balances. ok is false when the account cannot
// cover the amount; balances are never driven negative.
func (a *OwnerAccount) SplitSpend(total int64) (SpendSplit, bool) {
	if total < 0 || total > a.Spendable() {
		return SpendSplit{}, false
	}
	fromBonus := a.BonusBalance
	if total < fromBonus {
		fromBonus = total
	}
	return SpendSplit{FromBonus: fromBonus, FromReal: total - fromBonus}, true
}

// Transaction is one immutable row of the append-only ledger. Total order
// for an owner is (created_at, id). Replaying all rows for an owner from
// zero must reproduce real_balance and bonus_balance exactly.
type Transaction struct {
	ID               int64           `json:"id" db:"id"`
	Reference        string          `json:"reference" db:"reference"`
	OwnerID          int64           `json:"owner_id" db:"owner_id"`
	Amount           int64           `json:"amount" db:"amount"`
	Type             TransactionType `json:"type" db:"type"`
	Description      string          `json:"description" db:"description"`
	BalanceAfter     int64           `json:"balance_after" db:"balance_after"`
	RelatedListingID sql.NullInt64   `json:"related_listing_id,omitempty" db:"related_listing_id"`
	GatewayRef       sql.NullString  `json:"gateway_ref,omitempty" db:"gateway_ref"`
	StaffID          sql.NullInt64   `json:"staff_id,omitempty" db:"staff_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// Replay folds a transaction slice (in ledger order) back into the two
// balances it implies. Credits land on the balance their type funds;
// debits drain bonus first, the same split Spend applies. A fold to one
// combined total would let funds leak between the balances unnoticed.
func Replay(txs []Transaction) (realBalance, bonusBalance int64) {
	for _, tx := range txs {
		if tx.Amount >= 0 {
			switch tx.Type {
			case TransactionBonusGrant, TransactionGiftActivation:
				bonusBalance += tx.Amount
			default:
				realBalance += tx.Amount
			}
			continue
		}
		debit := -tx.Amount
		fromBonus := bonusBalance
		if debit < fromBonus {
			fromBonus = debit
		}
		bonusBalance -= fromBonus
		realBalance -= debit - fromBonus
	}
	return realBalance, bonusBalance
}

// Cashback is the bonus credited alongside a confirmed top-up:
// floor(amount * percent / 100).
func Cashback(amount int64, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return amount * percent / 100
}

// DTOs

// TopUpIntent is what the owner takes to the payment gateway. Nothing is
// credited until the gateway confirms via webhook.
type TopUpIntent struct {
	Reference string    `json:"reference"`
	OwnerID   int64     `json:"owner_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type TopUpConfirmation struct {
	GatewayRef string `json:"gateway_ref" binding:"required"`
	OwnerID    int64  `json:"owner_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

type CreditRequest struct {
	Amount      int64         `json:"amount" binding:"required,gt=0"`
	Target      BalanceTarget `json:"target" binding:"required,oneof=real bonus"`
	Description string        `json:"description"`
}

type ReplayReport struct {
	OwnerID        int64 `json:"owner_id"`
	LedgerReal     int64 `json:"ledger_real"`
	LedgerBonus    int64 `json:"ledger_bonus"`
	RealBalance    int64 `json:"real_balance"`
	BonusBalance   int64 `json:"bonus_balance"`
	Consistent     bool  `json:"consistent"`
	TransactionCnt int   `json:"transaction_count"`
}

type TransactionListFilters struct {
	Type     *TransactionType `form:"type"`
	Page     int              `form:"page,default=1" binding:"min=0"`
	PageSize int              `form:"page_size,default=50" binding:"min=0,max=200"`
}
