// internal/handlers/promotion/promotion_handler.go
package promotion

import (
	"net/http"
	"strconv"
	"time"

	"pochasovo-service/internal/domain/promotion"
	"pochasovo-service/internal/middleware"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/lock"
	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/promotion"

	"github.com/gin-gonic/gin"
)

type PromotionHandler struct {
	promotionService *service.PromotionService
}

func NewPromotionHandler(promotionService *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{
		promotionService: promotionService,
	}
}

// Purchase buys a promotion package for one of the owner's listings
func (h *PromotionHandler) Purchase(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	var req promotion.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	pkg, err := h.promotionService.Purchase(c.Request.Context(), ownerID, &req)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.Error(c, http.StatusNotFound, "listing not found", err)
		case xerrors.Is(err, xerrors.ErrForbidden):
			response.Error(c, http.StatusForbidden, "listing belongs to another owner", err)
		case xerrors.Is(err, xerrors.ErrInsufficientFunds):
			response.Error(c, http.StatusPaymentRequired, "insufficient funds", err)
		case xerrors.Is(err, xerrors.ErrListingNotEligible),
			xerrors.Is(err, xerrors.ErrCityMismatch),
			xerrors.Is(err, xerrors.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "promotion purchase rejected", err)
		case xerrors.Is(err, xerrors.ErrPackageAlreadyActive),
			xerrors.Is(err, xerrors.ErrConflict),
			xerrors.Is(err, xerrors.ErrConcurrentModification):
			response.Error(c, http.StatusConflict, "promotion purchase rejected", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to purchase promotion", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "promotion package purchased", pkg)
}

// GetActivePackage returns the listing's current package, if any
func (h *PromotionHandler) GetActivePackage(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid listing ID", err)
		return
	}

	pkg, err := h.promotionService.ActivePackageFor(c.Request.Context(), listingID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "no active package", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load package", err)
		return
	}

	response.Success(c, http.StatusOK, "package retrieved", pkg)
}

// GetCityPromotions returns active packages and tier pricing for a city
func (h *PromotionHandler) GetCityPromotions(c *gin.Context) {
	city := c.Param("city")
	if city == "" {
		response.Error(c, http.StatusBadRequest, "city is required", nil)
		return
	}

	promotions, err := h.promotionService.GetCityPromotions(c.Request.Context(), city)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load city promotions", err)
		return
	}

	response.Success(c, http.StatusOK, "city promotions retrieved", promotions)
}

// ========== Staff Endpoints ==========

// RotateCity forces the daily rotation for one city
func (h *PromotionHandler) RotateCity(c *gin.Context) {
	city := c.Param("city")
	if city == "" {
		response.Error(c, http.StatusBadRequest, "city is required", nil)
		return
	}

	if err := h.promotionService.RotateCity(c.Request.Context(), city, time.Now()); err != nil {
		if xerrors.Is(err, lock.ErrNotAcquired) {
			response.Error(c, http.StatusConflict, "rotation already running", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to rotate city", err)
		return
	}

	response.Success(c, http.StatusOK, "rotation completed", gin.H{"city": city})
}
