// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/account"
	"pochasovo-service/internal/domain/listing"
	"pochasovo-service/internal/domain/subscription"
	"pochasovo-service/internal/events"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/jwt"
	"pochasovo-service/internal/repository/postgres"
	accountsvc "pochasovo-service/internal/service/account"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Staff grants are bounded so a fat-fingered request cannot hand out a
// decade of visibility.
const maxStaffGrantDays = 365

// RankInvalidator drops a city's cached catalog ranking after a
// visibility change.
type RankInvalidator interface {
	InvalidateCity(ctx context.Context, city string)
}

// SubscriptionService manages per-listing visibility windows. All
// extensions bank unused time: days are appended to the current expiry
// when the period is still running.
type SubscriptionService struct {
	listingRepo *postgres.ListingRepository
	accountSvc  *accountsvc.AccountService
	db          *postgres.DB
	publisher   *events.Publisher
	rank        RankInvalidator
	logger      *zap.Logger

	prices subscription.TermPrices
}

func NewSubscriptionService(
	listingRepo *postgres.ListingRepository,
	accountSvc *accountsvc.AccountService,
	db *postgres.DB,
	publisher *events.Publisher,
	rank RankInvalidator,
	logger *zap.Logger,
	prices subscription.TermPrices,
) *SubscriptionService {
	return &SubscriptionService{
		listingRepo: listingRepo,
		accountSvc:  accountSvc,
		db:          db,
		publisher:   publisher,
		rank:        rank,
		logger:      logger,
		prices:      prices,
	}
}

// Info returns the listing's current window together with the purchase
// terms offered to owners.
func (s *SubscriptionService) Info(ctx context.Context, ownerID, listingID int64) (*subscription.SubscriptionInfo, error) {
	l, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, xerrors.ErrForbidden
	}

	now := time.Now()
	info := &subscription.SubscriptionInfo{
		ListingID:     l.ID,
		DaysRemaining: l.Subscription.DaysRemaining(now),
		Prices:        s.prices,
	}
	if l.Subscription.ExpiresAt.Valid {
		t := l.Subscription.ExpiresAt.Time
		info.ExpiresAt = &t
	}
	return info, nil
}

// ListByOwner returns subscription info for every listing the owner has.
func (s *SubscriptionService) ListByOwner(ctx context.Context, ownerID int64) ([]subscription.SubscriptionInfo, error) {
	listings, err := s.listingRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	infos := make([]subscription.SubscriptionInfo, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		info := subscription.SubscriptionInfo{
			ListingID:     l.ID,
			DaysRemaining: l.Subscription.DaysRemaining(now),
			Prices:        s.prices,
		}
		if l.Subscription.ExpiresAt.Valid {
			t := l.Subscription.ExpiresAt.Time
			info.ExpiresAt = &t
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Purchase extends a listing's window from the owner's balance. Only the
// fixed terms are sold; the spend and the extension commit together.
func (s *SubscriptionService) Purchase(ctx context.Context, ownerID, listingID int64, days int) (*subscription.SubscriptionInfo, error) {
	price, err := s.termPrice(days)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, xerrors.ErrForbidden
	}
	if l.IsArchived {
		return nil, xerrors.Wrap(xerrors.ErrListingNotEligible, "listing is archived")
	}

	lid := l.ID
	tr, _, err := s.accountSvc.SpendWithTx(
		ctx, tx, ownerID, price,
		account.TransactionSubscriptionPurchase,
		fmt.Sprintf("Subscription %d days for listing #%d", days, l.ID),
		&lid, nil,
	)
	if err != nil {
		return nil, postgres.MapLockError(err)
	}

	newExpiry, err := s.applyExtensionWithTx(ctx, tx, l, days, subscription.FundingOwnerBalance)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("subscription purchased",
		zap.Int64("owner_id", ownerID),
		zap.Int64("listing_id", l.ID),
		zap.Int("days", days),
		zap.Int64("price", price),
		zap.Time("expires_at", newExpiry))

	s.accountSvc.PublishTransaction(ctx, tr)
	s.publishChange(ctx, l, newExpiry)
	s.rank.InvalidateCity(ctx, l.City)

	info := &subscription.SubscriptionInfo{
		ListingID:     l.ID,
		ExpiresAt:     &newExpiry,
		DaysRemaining: l.Subscription.DaysRemaining(time.Now()),
		Prices:        s.prices,
	}
	return info, nil
}

// Grant extends a listing's window without payment, on behalf of staff.
// Superadmins are exempt from the day limit.
func (s *SubscriptionService) Grant(ctx context.Context, staffID int64, roles []string, listingID int64, days int) (*subscription.SubscriptionInfo, error) {
	if days <= 0 {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "grant must be at least 1 day")
	}
	if days > maxStaffGrantDays && !hasRole(roles, jwt.RoleSuperAdmin) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("grant above %d days requires superadmin", maxStaffGrantDays))
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}

	newExpiry, err := s.applyExtensionWithTx(ctx, tx, l, days, subscription.FundingStaffGrant)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("subscription granted by staff",
		zap.Int64("staff_id", staffID),
		zap.Int64("listing_id", l.ID),
		zap.Int("days", days),
		zap.Time("expires_at", newExpiry))

	s.publishChange(ctx, l, newExpiry)
	s.rank.InvalidateCity(ctx, l.City)

	info := &subscription.SubscriptionInfo{
		ListingID:     l.ID,
		ExpiresAt:     &newExpiry,
		DaysRemaining: l.Subscription.DaysRemaining(time.Now()),
		Prices:        s.prices,
	}
	return info, nil
}

// Reset wipes the listing's current period. Periods the owner paid for or
// received as a gift cannot be reset; no refund is issued either way.
func (s *SubscriptionService) Reset(ctx context.Context, staffID, listingID int64) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, listingID)
	if err != nil {
		return err
	}
	if !l.Subscription.Resettable() {
		return xerrors.ErrSubscriptionProtected
	}

	if err := s.listingRepo.UpdateSubscriptionWithTx(ctx, tx, l.ID, nil, false, false); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("subscription reset by staff",
		zap.Int64("staff_id", staffID),
		zap.Int64("listing_id", l.ID))

	s.publisher.Publish(ctx, events.LedgerEvent{
		Type:      events.TypeSubscriptionChanged,
		OwnerID:   l.OwnerID,
		ListingID: l.ID,
		City:      l.City,
		At:        time.Now().UTC(),
	})
	s.rank.InvalidateCity(ctx, l.City)
	return nil
}

// ExtendWithTx applies a funded extension to an already-locked listing
// inside the caller's DB transaction. Gift activation and the trial
// compose their own units of work around this.
func (s *SubscriptionService) ExtendWithTx(ctx context.Context, tx pgx.Tx, l *listing.Listing, days int, funding subscription.Funding) (time.Time, error) {
	return s.applyExtensionWithTx(ctx, tx, l, days, funding)
}

// applyExtensionWithTx computes the banked expiry and the funding flags
// and writes both. When the extension opens a new period the flags are
// set from the funding alone; when it stacks onto a running period the
// new funding is OR-ed in, so a paid period stays protected after a
// staff top-up.
func (s *SubscriptionService) applyExtensionWithTx(ctx context.Context, tx pgx.Tx, l *listing.Listing, days int, funding subscription.Funding) (time.Time, error) {
	now := time.Now()
	newExpiry := l.Subscription.ExtendFrom(now, days)

	purchased := funding == subscription.FundingOwnerBalance
	isGift := funding == subscription.FundingGift
	if l.Subscription.IsActive(now) {
		purchased = purchased || l.Subscription.PurchasedByOwner
		isGift = isGift || l.Subscription.IsGift
	}

	if err := s.listingRepo.UpdateSubscriptionWithTx(ctx, tx, l.ID, &newExpiry, purchased, isGift); err != nil {
		return time.Time{}, err
	}

	l.Subscription.ExpiresAt.Time = newExpiry
	l.Subscription.ExpiresAt.Valid = true
	l.Subscription.PurchasedByOwner = purchased
	l.Subscription.IsGift = isGift
	return newExpiry, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *SubscriptionService) termPrice(days int) (int64, error) {
	switch days {
	case 30:
		return s.prices.Days30, nil
	case 90:
		return s.prices.Days90, nil
	default:
		return 0, xerrors.Wrap(xerrors.ErrInvalidInput, "only 30 and 90 day terms are sold")
	}
}

func (s *SubscriptionService) publishChange(ctx context.Context, l *listing.Listing, expiresAt time.Time) {
	s.publisher.Publish(ctx, events.LedgerEvent{
		Type:      events.TypeSubscriptionChanged,
		OwnerID:   l.OwnerID,
		ListingID: l.ID,
		City:      l.City,
		At:        expiresAt.UTC(),
	})
}
