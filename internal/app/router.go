// internal/app/router.go
package app

import (
	accountHandler "pochasovo-service/internal/handlers/account"
	catalogHandler "pochasovo-service/internal/handlers/catalog"
	giftHandler "pochasovo-service/internal/handlers/gift"
	paymentHandler "pochasovo-service/internal/handlers/payment"
	promotionHandler "pochasovo-service/internal/handlers/promotion"
	subscriptionHandler "pochasovo-service/internal/handlers/subscription"
	"pochasovo-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	AccountHandler      *accountHandler.AccountHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	PromotionHandler    *promotionHandler.PromotionHandler
	GiftHandler         *giftHandler.GiftHandler
	CatalogHandler      *catalogHandler.CatalogHandler
	PaymentHandler      *paymentHandler.PaymentHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health & Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== Public Catalog ====================
	catalog := api.Group("/catalog")
	{
		catalog.GET("/:city", h.CatalogHandler.GetCityRanking)
		catalog.GET("/:city/promotions", h.PromotionHandler.GetCityPromotions)
	}

	// ==================== Payment Gateway ====================
	api.POST("/payments/webhook", h.PaymentHandler.Webhook)

	// ==================== Owner Routes ====================
	owner := api.Group("/owner")
	owner.Use(h.AuthMiddleware.Auth())
	{
		owner.GET("/account", h.AccountHandler.GetBalance)
		owner.GET("/account/transactions", h.AccountHandler.ListTransactions)
		owner.POST("/account/top-up", h.AccountHandler.CreateTopUpIntent)

		owner.GET("/subscriptions", h.SubscriptionHandler.ListMine)
		owner.GET("/listings/:listing_id/subscription", h.SubscriptionHandler.GetInfo)
		owner.POST("/listings/:listing_id/subscription", h.SubscriptionHandler.Purchase)

		owner.POST("/promotions", h.PromotionHandler.Purchase)
		owner.GET("/listings/:listing_id/promotion", h.PromotionHandler.GetActivePackage)

		owner.GET("/gifts", h.GiftHandler.ListPending)
		owner.POST("/gifts/:gift_id/activate", h.GiftHandler.Activate)
		owner.POST("/trial", h.GiftHandler.ActivateTrial)
	}

	// ==================== Staff Routes ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireStaff())
	{
		admin.GET("/owners/:owner_id/account", h.AccountHandler.GetOwnerAccount)
		admin.POST("/owners/:owner_id/credit", h.AccountHandler.CreditOwner)
		admin.GET("/owners/:owner_id/ledger/verify", h.AccountHandler.VerifyOwnerLedger)

		admin.POST("/listings/:listing_id/subscription/grant", h.SubscriptionHandler.Grant)
		admin.DELETE("/listings/:listing_id/subscription", h.SubscriptionHandler.Reset)

		admin.POST("/gifts", h.GiftHandler.Send)
		admin.POST("/owners/:owner_id/trial", h.GiftHandler.ActivateTrialFor)

		admin.POST("/cities/:city/rotate", h.PromotionHandler.RotateCity)
	}

	logger.Info("router configured")
}
