// internal/app/background/tasks.go
package background

import (
	"context"
	"time"

	giftsvc "pochasovo-service/internal/service/gift"
	promotionsvc "pochasovo-service/internal/service/promotion"

	"go.uber.org/zap"
)

const giftSweepInterval = 1 * time.Hour

// BackgroundTasks drives the periodic work: the daily position rotation
// at local midnight and the pending-gift TTL sweep. Every instance runs
// both loops; the redis rotation lock keeps the cluster single-writer
// per city.
type BackgroundTasks struct {
	PromotionService *promotionsvc.PromotionService
	GiftService      *giftsvc.GiftService
	Location         *time.Location
	Logger           *zap.Logger
}

func NewBackgroundTasks(promotionService *promotionsvc.PromotionService, giftService *giftsvc.GiftService, loc *time.Location, logger *zap.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		PromotionService: promotionService,
		GiftService:      giftService,
		Location:         loc,
		Logger:           logger,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startDailyRotation(ctx)
	go bt.startGiftExpiry(ctx)
}

func (bt *BackgroundTasks) startDailyRotation(ctx context.Context) {
	for {
		now := time.Now().In(bt.Location)
		next := nextMidnight(now)

		bt.Logger.Info("next rotation scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			bt.PromotionService.RotateAll(ctx, next)
		}
	}
}

func (bt *BackgroundTasks) startGiftExpiry(ctx context.Context) {
	ticker := time.NewTicker(giftSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bt.GiftService.ExpireDue(ctx); err != nil {
				bt.Logger.Error("gift expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// nextMidnight is the start of the next local day.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
