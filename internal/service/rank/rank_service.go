// internal/service/rank/rank_service.go
package rank

import (
	"context"
	"encoding/json"
	"time"

	"pochasovo-service/internal/domain/promotion"
	"pochasovo-service/internal/domain/rank"
	"pochasovo-service/internal/pkg/metrics"
	"pochasovo-service/internal/repository/postgres"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "rank:"
	cacheTTL       = 5 * time.Minute
)

// RankService computes the public catalog order for a city and caches it
// in redis. Every write path that changes visibility or positions calls
// InvalidateCity, so the TTL is only a backstop.
type RankService struct {
	listingRepo   *postgres.ListingRepository
	promotionRepo *postgres.PromotionRepository
	redis         *redis.Client
	metrics       *metrics.LedgerMetrics
	logger        *zap.Logger
}

func NewRankService(
	listingRepo *postgres.ListingRepository,
	promotionRepo *postgres.PromotionRepository,
	redisClient *redis.Client,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
) *RankService {
	return &RankService{
		listingRepo:   listingRepo,
		promotionRepo: promotionRepo,
		redis:         redisClient,
		metrics:       m,
		logger:        logger,
	}
}

// Resolve returns the ranked catalog for a city, cache first.
func (s *RankService) Resolve(ctx context.Context, city string) ([]rank.RankedListing, error) {
	key := cacheKeyPrefix + city

	if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
		var ranked []rank.RankedListing
		if err := json.Unmarshal(cached, &ranked); err == nil {
			s.metrics.RankCacheHitsTotal.Inc()
			return ranked, nil
		}
		// Corrupt cache entry; fall through to a recompute.
		s.redis.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.Warn("rank cache read failed", zap.String("city", city), zap.Error(err))
	}

	s.metrics.RankCacheMissesTotal.Inc()
	ranked, err := s.compute(ctx, city)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(ranked); err == nil {
		if err := s.redis.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
			s.logger.Warn("rank cache write failed", zap.String("city", city), zap.Error(err))
		}
	}
	return ranked, nil
}

// InvalidateCity drops the cached ranking for a city.
func (s *RankService) InvalidateCity(ctx context.Context, city string) {
	if err := s.redis.Del(ctx, cacheKeyPrefix+city).Err(); err != nil {
		s.logger.Warn("rank cache invalidation failed", zap.String("city", city), zap.Error(err))
	}
}

func (s *RankService) compute(ctx context.Context, city string) ([]rank.RankedListing, error) {
	now := time.Now()

	listings, err := s.listingRepo.VisibleByCity(ctx, city, now)
	if err != nil {
		return nil, err
	}

	packages, err := s.promotionRepo.ActiveByCity(ctx, city, now)
	if err != nil {
		return nil, err
	}
	byListing := make(map[int64]*promotion.PromotionPackage, len(packages))
	for _, p := range packages {
		byListing[p.ListingID] = p
	}

	candidates := make([]rank.Candidate, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		candidates = append(candidates, rank.Candidate{
			ListingID: l.ID,
			Title:     l.Title,
			Package:   byListing[l.ID],
		})
	}
	return rank.Merge(candidates), nil
}
