// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"pochasovo-service/internal/app/background"
	"pochasovo-service/internal/config"
	"pochasovo-service/internal/db"
	"pochasovo-service/internal/domain/subscription"
	"pochasovo-service/internal/events"
	accountHandler "pochasovo-service/internal/handlers/account"
	catalogHandler "pochasovo-service/internal/handlers/catalog"
	giftHandler "pochasovo-service/internal/handlers/gift"
	paymentHandler "pochasovo-service/internal/handlers/payment"
	promotionHandler "pochasovo-service/internal/handlers/promotion"
	subscriptionHandler "pochasovo-service/internal/handlers/subscription"
	"pochasovo-service/internal/middleware"
	"pochasovo-service/internal/pkg/jwt"
	"pochasovo-service/internal/pkg/lock"
	"pochasovo-service/internal/pkg/metrics"
	"pochasovo-service/internal/repository/postgres"
	accountsvc "pochasovo-service/internal/service/account"
	giftsvc "pochasovo-service/internal/service/gift"
	promotionsvc "pochasovo-service/internal/service/promotion"
	ranksvc "pochasovo-service/internal/service/rank"
	subscriptionsvc "pochasovo-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher *events.Publisher
	cancelBg  context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	s.logger = logger

	// ----- Migrations -----
	if err := postgres.RunMigrations(s.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	log.Println("[REDIS] ✅ Connected successfully")

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Metrics, Events, Locks -----
	ledgerMetrics := metrics.NewLedgerMetrics()
	publisher := events.NewPublisher(s.cfg.KafkaBrokers, s.cfg.KafkaTopic, logger)
	s.publisher = publisher
	locker := lock.NewLocker(redisClient)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	accountRepo := postgres.NewOwnerAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	listingRepo := postgres.NewListingRepository(pool)
	promotionRepo := postgres.NewPromotionRepository(pool)
	giftRepo := postgres.NewGiftRepository(pool)

	// ----- Services -----
	rankService := ranksvc.NewRankService(listingRepo, promotionRepo, redisClient, ledgerMetrics, logger)
	accountService := accountsvc.NewAccountService(
		accountRepo, transactionRepo, dbWrapper, publisher, ledgerMetrics, logger, s.cfg.CashbackPercent,
	)
	subscriptionService := subscriptionsvc.NewSubscriptionService(
		listingRepo, accountService, dbWrapper, publisher, rankService, logger,
		subscription.TermPrices{Days30: s.cfg.Price30Days, Days90: s.cfg.Price90Days},
	)
	loc, err := time.LoadLocation(s.cfg.RotationTimezone)
	if err != nil {
		return fmt.Errorf("failed to load rotation timezone %q: %w", s.cfg.RotationTimezone, err)
	}
	promotionService := promotionsvc.NewPromotionService(
		promotionRepo, listingRepo, accountService, dbWrapper, locker, publisher,
		rankService, ledgerMetrics, logger, s.cfg.DefaultTiers, loc,
	)
	giftService := giftsvc.NewGiftService(
		giftRepo, listingRepo, accountRepo, accountService, subscriptionService,
		dbWrapper, publisher, rankService, ledgerMetrics, logger, s.cfg.TrialDays,
	)

	// ----- Background Tasks -----
	bgCtx, cancelBg := context.WithCancel(context.Background())
	s.cancelBg = cancelBg
	background.NewBackgroundTasks(promotionService, giftService, loc, logger).StartAll(bgCtx)

	// ----- Handlers -----
	accountHandlerInst := accountHandler.NewAccountHandler(accountService)
	subscriptionHandlerInst := subscriptionHandler.NewSubscriptionHandler(subscriptionService)
	promotionHandlerInst := promotionHandler.NewPromotionHandler(promotionService)
	giftHandlerInst := giftHandler.NewGiftHandler(giftService)
	catalogHandlerInst := catalogHandler.NewCatalogHandler(rankService)
	paymentHandlerInst := paymentHandler.NewPaymentHandler(accountService)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	// ----- Router -----
	handlers := &Handlers{
		AccountHandler:      accountHandlerInst,
		SubscriptionHandler: subscriptionHandlerInst,
		PromotionHandler:    promotionHandlerInst,
		GiftHandler:         giftHandlerInst,
		CatalogHandler:      catalogHandlerInst,
		PaymentHandler:      paymentHandlerInst,
		AuthMiddleware:      authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// Shutdown releases the server's external resources.
func (s *Server) Shutdown(ctx context.Context) {
	if s.cancelBg != nil {
		s.cancelBg()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil && s.logger != nil {
			s.logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}
