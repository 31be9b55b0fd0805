// internal/service/promotion/promotion_service.go
package promotion

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"pochasovo-service/internal/config"
	"pochasovo-service/internal/domain/account"
	"pochasovo-service/internal/domain/promotion"
	"pochasovo-service/internal/events"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/lock"
	"pochasovo-service/internal/pkg/metrics"
	"pochasovo-service/internal/repository/postgres"
	accountsvc "pochasovo-service/internal/service/account"
	subscriptionsvc "pochasovo-service/internal/service/subscription"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const rotationLockTTL = 2 * time.Minute

// PromotionService sells tiered catalog placement and runs the daily
// position rotation.
type PromotionService struct {
	promotionRepo *postgres.PromotionRepository
	listingRepo   *postgres.ListingRepository
	accountSvc    *accountsvc.AccountService
	db            *postgres.DB
	locker        *lock.Locker
	publisher     *events.Publisher
	rank          subscriptionsvc.RankInvalidator
	metrics       *metrics.LedgerMetrics
	logger        *zap.Logger

	defaults config.TierDefaults
	loc      *time.Location
}

func NewPromotionService(
	promotionRepo *postgres.PromotionRepository,
	listingRepo *postgres.ListingRepository,
	accountSvc *accountsvc.AccountService,
	db *postgres.DB,
	locker *lock.Locker,
	publisher *events.Publisher,
	rank subscriptionsvc.RankInvalidator,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
	defaults config.TierDefaults,
	loc *time.Location,
) *PromotionService {
	return &PromotionService{
		promotionRepo: promotionRepo,
		listingRepo:   listingRepo,
		accountSvc:    accountSvc,
		db:            db,
		locker:        locker,
		publisher:     publisher,
		rank:          rank,
		metrics:       m,
		logger:        logger,
		defaults:      defaults,
		loc:           loc,
	}
}

// Purchase buys a promotion package for a listing. The whole eligibility
// chain runs against the locked listing row, so a lapsed subscription or
// a racing second purchase cannot slip through.
func (s *PromotionService) Purchase(ctx context.Context, ownerID int64, req *promotion.PurchaseRequest) (*promotion.PromotionPackage, error) {
	if !promotion.ValidPackageType(req.PackageType) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown package type %q", req.PackageType))
	}

	tiers, err := s.cityTiers(ctx, req.City)
	if err != nil {
		return nil, err
	}
	tier := tiers[req.PackageType]

	now := time.Now()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.listingRepo.FindForUpdateWithTx(ctx, tx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, xerrors.ErrForbidden
	}
	if l.City != req.City {
		return nil, xerrors.ErrCityMismatch
	}
	if !l.PromotionEligible(now) {
		s.metrics.SpendsRejectedTotal.WithLabelValues("listing_not_eligible").Inc()
		return nil, xerrors.ErrListingNotEligible
	}

	if _, err := s.promotionRepo.FindActiveByListingWithTx(ctx, tx, l.ID, now); err == nil {
		return nil, xerrors.ErrPackageAlreadyActive
	} else if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	active, err := s.promotionRepo.CountActiveInTierWithTx(ctx, tx, req.City, req.PackageType, now)
	if err != nil {
		return nil, err
	}
	if active >= tier.Slots() {
		return nil, xerrors.Wrap(xerrors.ErrConflict, fmt.Sprintf("tier %s in %s is sold out", req.PackageType, req.City))
	}

	lid := l.ID
	tr, _, err := s.accountSvc.SpendWithTx(
		ctx, tx, ownerID, tier.Price,
		account.TransactionPromotionPurchase,
		fmt.Sprintf("Promotion package %s for listing #%d", req.PackageType, l.ID),
		&lid, nil,
	)
	if err != nil {
		return nil, postgres.MapLockError(err)
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	pkg := &promotion.PromotionPackage{
		Reference:       s.generatePackageReference(),
		ListingID:       l.ID,
		OwnerID:         ownerID,
		City:            req.City,
		PackageType:     req.PackageType,
		PricePaid:       tier.Price,
		StartDate:       now,
		EndDate:         now.Add(promotion.PackageDuration),
		CurrentPosition: promotion.InitialPosition(tier, rng),
	}
	if err := s.promotionRepo.CreateWithTx(ctx, tx, pkg); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("promotion package purchased",
		zap.String("reference", pkg.Reference),
		zap.Int64("owner_id", ownerID),
		zap.Int64("listing_id", l.ID),
		zap.String("city", req.City),
		zap.String("tier", string(req.PackageType)),
		zap.Int("position", pkg.CurrentPosition))

	s.metrics.PackagesPurchasedTotal.WithLabelValues(req.City, string(req.PackageType)).Inc()
	s.accountSvc.PublishTransaction(ctx, tr)
	s.publisher.Publish(ctx, events.LedgerEvent{
		Type:      events.TypePackagePurchased,
		OwnerID:   ownerID,
		ListingID: l.ID,
		City:      req.City,
		Amount:    tier.Price,
		At:        now.UTC(),
	})
	s.rank.InvalidateCity(ctx, req.City)
	return pkg, nil
}

// GetCityPromotions returns the active packages and the tier pricing for
// one city.
func (s *PromotionService) GetCityPromotions(ctx context.Context, city string) (*promotion.CityPromotions, error) {
	tiers, err := s.cityTiers(ctx, city)
	if err != nil {
		return nil, err
	}

	packages, err := s.promotionRepo.ActiveByCity(ctx, city, time.Now())
	if err != nil {
		return nil, err
	}

	pricing := make(map[promotion.PackageType]promotion.TierInfo, len(tiers))
	for pt, tier := range tiers {
		pricing[pt] = promotion.TierInfo{
			Price:    tier.Price,
			Range:    fmt.Sprintf("%d-%d", tier.RangeMin, tier.RangeMax),
			RangeMin: tier.RangeMin,
			RangeMax: tier.RangeMax,
		}
	}

	return &promotion.CityPromotions{City: city, Packages: packages, Pricing: pricing}, nil
}

// ActivePackageFor returns the listing's unexpired package, if any.
func (s *PromotionService) ActivePackageFor(ctx context.Context, listingID int64) (*promotion.PromotionPackage, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	return s.promotionRepo.FindActiveByListingWithTx(ctx, tx, listingID, time.Now())
}

// RotateAll runs the daily rotation for every city that has at least one
// active package. Each city is independent; one failure does not stop
// the others.
func (s *PromotionService) RotateAll(ctx context.Context, day time.Time) {
	cities, err := s.promotionRepo.CitiesWithActivePackages(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list rotation cities", zap.Error(err))
		return
	}

	for _, city := range cities {
		if err := s.RotateCity(ctx, city, day); err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				s.logger.Info("rotation already running elsewhere", zap.String("city", city))
				continue
			}
			s.logger.Error("city rotation failed", zap.String("city", city), zap.Error(err))
		}
	}
}

// RotateCity reassigns positions for one city's rotation pool. The redis
// lock keeps concurrent instances from rotating the same city; the
// (city, day) seed makes a re-run after a crash land on the same
// assignment.
func (s *PromotionService) RotateCity(ctx context.Context, city string, day time.Time) error {
	held, err := s.locker.Acquire(ctx, "rotation:"+city, rotationLockTTL)
	if err != nil {
		return err
	}
	defer held.Release(ctx)

	started := time.Now()
	outcome := "ok"
	defer func() {
		s.metrics.RotationRunsTotal.WithLabelValues(city, outcome).Inc()
		s.metrics.RotationDuration.WithLabelValues(city).Observe(time.Since(started).Seconds())
	}()

	tiers, err := s.cityTiers(ctx, city)
	if err != nil {
		outcome = "error"
		return err
	}

	// ActiveByCity already drops expired packages and packages whose
	// listing went archived or lapsed, so the pool is the rotation pool.
	pool, err := s.promotionRepo.ActiveByCity(ctx, city, started)
	if err != nil {
		outcome = "error"
		return err
	}
	if len(pool) == 0 {
		outcome = "empty"
		return nil
	}

	promotion.AssignPositions(pool, tiers, promotion.DailySeed(city, day, s.loc))

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pkg := range pool {
		if err := s.promotionRepo.UpdatePositionWithTx(ctx, tx, pkg.ID, pkg.CurrentPosition); err != nil {
			outcome = "error"
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		outcome = "error"
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("city rotation completed",
		zap.String("city", city),
		zap.Int("packages", len(pool)),
		zap.Duration("took", time.Since(started)))

	s.publisher.Publish(ctx, events.LedgerEvent{
		Type: events.TypeRotationCompleted,
		City: city,
		At:   time.Now().UTC(),
	})
	s.rank.InvalidateCity(ctx, city)
	return nil
}

// cityTiers loads the city's tier table, falling back to configured
// defaults for cities with no rows.
func (s *PromotionService) cityTiers(ctx context.Context, city string) (promotion.CityTiers, error) {
	tiers, err := s.promotionRepo.Tiers(ctx, city)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		tiers = s.defaultTiers(city)
	}
	if err := tiers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tier config for %s: %w", city, err)
	}
	return tiers, nil
}

func (s *PromotionService) defaultTiers(city string) promotion.CityTiers {
	d := s.defaults
	return promotion.CityTiers{
		promotion.PackageGold: {
			City: city, PackageType: promotion.PackageGold,
			Price: d.GoldPrice, RangeMin: d.GoldMin, RangeMax: d.GoldMax,
		},
		promotion.PackageSilver: {
			City: city, PackageType: promotion.PackageSilver,
			Price: d.SilverPrice, RangeMin: d.SilverMin, RangeMax: d.SilverMax,
		},
		promotion.PackageBronze: {
			City: city, PackageType: promotion.PackageBronze,
			Price: d.BronzePrice, RangeMin: d.BronzeMin, RangeMax: d.BronzeMax,
		},
	}
}

// generatePackageReference generates a unique package reference
func (s *PromotionService) generatePackageReference() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("PKG-%s-%s", timestamp, ulid.Make().String()[20:])
}
