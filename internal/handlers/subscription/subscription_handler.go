// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"
	"strconv"

	"pochasovo-service/internal/middleware"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

type purchaseInput struct {
	Days int `json:"days" binding:"required,gt=0"`
}

type grantInput struct {
	Days int `json:"days" binding:"required,gt=0"`
}

// GetInfo returns the subscription window and purchase terms for one listing
func (h *SubscriptionHandler) GetInfo(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	listingID, err := parseListingID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid listing ID", err)
		return
	}

	info, err := h.subscriptionService.Info(c.Request.Context(), ownerID, listingID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "listing not found", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrForbidden) {
			response.Error(c, http.StatusForbidden, "listing belongs to another owner", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", info)
}

// ListMine returns subscription info for every listing of the owner
func (h *SubscriptionHandler) ListMine(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	infos, err := h.subscriptionService.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", gin.H{
		"subscriptions": infos,
		"count":         len(infos),
	})
}

// Purchase extends a listing's subscription from the owner's balance
func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	listingID, err := parseListingID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid listing ID", err)
		return
	}

	var req purchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	info, err := h.subscriptionService.Purchase(c.Request.Context(), ownerID, listingID, req.Days)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.Error(c, http.StatusNotFound, "listing not found", err)
		case xerrors.Is(err, xerrors.ErrForbidden):
			response.Error(c, http.StatusForbidden, "listing belongs to another owner", err)
		case xerrors.Is(err, xerrors.ErrInsufficientFunds):
			response.Error(c, http.StatusPaymentRequired, "insufficient funds", err)
		case xerrors.Is(err, xerrors.ErrInvalidInput), xerrors.Is(err, xerrors.ErrListingNotEligible):
			response.Error(c, http.StatusBadRequest, "subscription purchase rejected", err)
		case xerrors.Is(err, xerrors.ErrConcurrentModification):
			response.Error(c, http.StatusConflict, "balance changed concurrently, retry", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to purchase subscription", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "subscription purchased", info)
}

// ========== Staff Endpoints ==========

// Grant extends a listing's subscription without payment
func (h *SubscriptionHandler) Grant(c *gin.Context) {
	staffID := middleware.MustGetIdentityID(c)

	listingID, err := parseListingID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid listing ID", err)
		return
	}

	var req grantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	roles, _ := middleware.GetRoles(c)
	info, err := h.subscriptionService.Grant(c.Request.Context(), staffID, roles, listingID, req.Days)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "listing not found", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "invalid grant", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to grant subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription granted", info)
}

// Reset wipes a listing's current subscription period
func (h *SubscriptionHandler) Reset(c *gin.Context) {
	staffID := middleware.MustGetIdentityID(c)

	listingID, err := parseListingID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid listing ID", err)
		return
	}

	if err := h.subscriptionService.Reset(c.Request.Context(), staffID, listingID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "listing not found", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrSubscriptionProtected) {
			response.Error(c, http.StatusConflict, "subscription cannot be reset", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to reset subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription reset", nil)
}

func parseListingID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("listing_id"), 10, 64)
}
