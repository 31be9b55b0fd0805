// internal/service/gift/gift_service.go
package gift

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/account"
	"pochasovo-service/internal/domain/gift"
	"pochasovo-service/internal/domain/subscription"
	"pochasovo-service/internal/events"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/metrics"
	"pochasovo-service/internal/repository/postgres"
	accountsvc "pochasovo-service/internal/service/account"
	subscriptionsvc "pochasovo-service/internal/service/subscription"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// GiftService issues staff gifts, activates them on the owner's behalf
// and runs the one-time trial.
type GiftService struct {
	giftRepo        *postgres.GiftRepository
	listingRepo     *postgres.ListingRepository
	accountRepo     *postgres.OwnerAccountRepository
	accountSvc      *accountsvc.AccountService
	subscriptionSvc *subscriptionsvc.SubscriptionService
	db              *postgres.DB
	publisher       *events.Publisher
	rank            subscriptionsvc.RankInvalidator
	metrics         *metrics.LedgerMetrics
	logger          *zap.Logger

	trialDays int
}

func NewGiftService(
	giftRepo *postgres.GiftRepository,
	listingRepo *postgres.ListingRepository,
	accountRepo *postgres.OwnerAccountRepository,
	accountSvc *accountsvc.AccountService,
	subscriptionSvc *subscriptionsvc.SubscriptionService,
	db *postgres.DB,
	publisher *events.Publisher,
	rank subscriptionsvc.RankInvalidator,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
	trialDays int,
) *GiftService {
	return &GiftService{
		giftRepo:        giftRepo,
		listingRepo:     listingRepo,
		accountRepo:     accountRepo,
		accountSvc:      accountSvc,
		subscriptionSvc: subscriptionSvc,
		db:              db,
		publisher:       publisher,
		rank:            rank,
		metrics:         m,
		logger:          logger,
		trialDays:       trialDays,
	}
}

// SendGift creates a pending gift on behalf of staff. Subscription-day
// gifts target one listing of the owner; bonus gifts target the account.
func (s *GiftService) SendGift(ctx context.Context, staffID int64, req *gift.SendGiftRequest) (*gift.Gift, error) {
	if !gift.ValidGiftType(req.GiftType) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown gift type %q", req.GiftType))
	}
	if req.GiftType == gift.GiftSubscriptionDays && req.ListingID == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "subscription gift requires a listing")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g := &gift.Gift{
		Reference:        s.generateGiftReference(),
		OwnerID:          req.OwnerID,
		GiftType:         req.GiftType,
		GiftValue:        req.GiftValue,
		Description:      req.Description,
		Status:           gift.StatusPending,
		CreatedByStaffID: sql.NullInt64{Int64: staffID, Valid: true},
	}
	if req.TTLDays > 0 {
		g.ExpiresAt = sql.NullTime{Time: time.Now().AddDate(0, 0, req.TTLDays), Valid: true}
	}

	if req.ListingID != nil {
		l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, *req.ListingID)
		if err != nil {
			return nil, err
		}
		if l.OwnerID != req.OwnerID {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "listing does not belong to the gift's owner")
		}

		pending, err := s.giftRepo.HasPendingOfTypeWithTx(ctx, tx, l.ID, req.GiftType)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, xerrors.Wrap(xerrors.ErrConflict, "listing already has a pending gift of this type")
		}
		g.ListingID = sql.NullInt64{Int64: l.ID, Valid: true}
	}

	if err := s.giftRepo.CreateWithTx(ctx, tx, g); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("gift sent",
		zap.String("reference", g.Reference),
		zap.Int64("staff_id", staffID),
		zap.Int64("owner_id", req.OwnerID),
		zap.String("gift_type", string(req.GiftType)),
		zap.Int64("gift_value", req.GiftValue))
	return g, nil
}

// ListPending returns the gifts the owner can still activate.
func (s *GiftService) ListPending(ctx context.Context, ownerID int64) ([]gift.Gift, error) {
	return s.giftRepo.ListPendingByOwner(ctx, ownerID)
}

// Activate flips a pending gift and applies its effect, all in one DB
// transaction. The row lock plus the status compare-and-set make a
// double tap activate exactly once.
func (s *GiftService) Activate(ctx context.Context, ownerID, giftID int64) (*gift.ActivationResult, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := s.giftRepo.FindForUpdateWithTx(ctx, tx, giftID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != ownerID {
		return nil, xerrors.ErrForbidden
	}
	if err := g.CanActivate(now); err != nil {
		return nil, err
	}

	if err := s.giftRepo.MarkActivatedWithTx(ctx, tx, g.ID, now); err != nil {
		return nil, err
	}

	result := &gift.ActivationResult{GiftID: g.ID, GiftType: g.GiftType}
	var (
		appliedTx   *account.Transaction
		changedCity string
	)

	switch g.GiftType {
	case gift.GiftSubscriptionDays:
		l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, g.ListingID.Int64)
		if err != nil {
			return nil, postgres.MapLockError(err)
		}
		if !l.Extendable() {
			return nil, xerrors.Wrap(xerrors.ErrListingNotEligible, "listing is archived")
		}
		newExpiry, err := s.subscriptionSvc.ExtendWithTx(ctx, tx, l, int(g.GiftValue), subscription.FundingGift)
		if err != nil {
			return nil, err
		}
		result.NewExpiresAt = &newExpiry
		changedCity = l.City

	case gift.GiftBonusBalance:
		tr, err := s.accountSvc.CreditWithTx(
			ctx, tx, ownerID, g.GiftValue,
			account.BalanceBonus, account.TransactionGiftActivation,
			fmt.Sprintf("Gift %s activated", g.Reference),
			nil, nil, nil,
		)
		if err != nil {
			return nil, err
		}
		appliedTx = tr
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("gift activated",
		zap.String("reference", g.Reference),
		zap.Int64("owner_id", ownerID),
		zap.String("gift_type", string(g.GiftType)),
		zap.Int64("gift_value", g.GiftValue))
	s.metrics.GiftsActivatedTotal.WithLabelValues(string(g.GiftType)).Inc()

	if appliedTx != nil {
		s.accountSvc.PublishTransaction(ctx, appliedTx)
		if acc, err := s.accountRepo.FindByID(ctx, ownerID); err == nil {
			result.BonusBalance = &acc.BonusBalance
		}
	}
	if changedCity != "" {
		s.publisher.Publish(ctx, events.LedgerEvent{
			Type:      events.TypeSubscriptionChanged,
			OwnerID:   ownerID,
			ListingID: g.ListingID.Int64,
			City:      changedCity,
			At:        now.UTC(),
		})
		s.rank.InvalidateCity(ctx, changedCity)
	}
	return result, nil
}

// ActivateTrial extends every listing of the owner by the trial term.
// One trial per owner, ever; the owner row lock serializes a double tap.
func (s *GiftService) ActivateTrial(ctx context.Context, ownerID int64) (*gift.TrialResult, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acc, err := s.accountRepo.FindForUpdateWithTx(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	if !acc.TrialAvailable() {
		return nil, xerrors.ErrTrialAlreadyUsed
	}

	listings, err := s.listingRepo.FindByOwnerForUpdateWithTx(ctx, tx, ownerID)
	if err != nil {
		return nil, postgres.MapLockError(err)
	}

	result := &gift.TrialResult{OwnerID: ownerID, Days: s.trialDays}
	cities := make(map[string]struct{})
	for i := range listings {
		l := &listings[i]
		if !l.Extendable() {
			continue
		}
		if _, err := s.subscriptionSvc.ExtendWithTx(ctx, tx, l, s.trialDays, subscription.FundingGift); err != nil {
			return nil, err
		}
		if err := s.listingRepo.SetTrialActivatedWithTx(ctx, tx, l.ID, now); err != nil {
			return nil, err
		}
		result.ExtendedListings = append(result.ExtendedListings, l.ID)
		cities[l.City] = struct{}{}
	}

	if err := s.accountRepo.SetTrialActivatedWithTx(ctx, tx, ownerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("trial activated",
		zap.Int64("owner_id", ownerID),
		zap.Int("days", s.trialDays),
		zap.Int("listings", len(result.ExtendedListings)))

	for city := range cities {
		s.publisher.Publish(ctx, events.LedgerEvent{
			Type:    events.TypeSubscriptionChanged,
			OwnerID: ownerID,
			City:    city,
			At:      now.UTC(),
		})
		s.rank.InvalidateCity(ctx, city)
	}
	return result, nil
}

// ExpireDue sweeps pending gifts whose TTL lapsed. Called from the
// background loop.
func (s *GiftService) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.giftRepo.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired pending gifts", zap.Int64("count", n))
	}
	return n, nil
}

// generateGiftReference generates a unique gift reference
func (s *GiftService) generateGiftReference() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("GIFT-%s-%s", timestamp, ulid.Make().String()[20:])
}
