// internal/handlers/gift/gift_handler.go
package gift

import (
	"net/http"
	"strconv"

	"pochasovo-service/internal/domain/gift"
	"pochasovo-service/internal/middleware"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/gift"

	"github.com/gin-gonic/gin"
)

type GiftHandler struct {
	giftService *service.GiftService
}

func NewGiftHandler(giftService *service.GiftService) *GiftHandler {
	return &GiftHandler{
		giftService: giftService,
	}
}

// ListPending returns the gifts the owner can still activate
func (h *GiftHandler) ListPending(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	gifts, err := h.giftService.ListPending(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list gifts", err)
		return
	}

	response.Success(c, http.StatusOK, "gifts retrieved", gin.H{
		"gifts": gifts,
		"count": len(gifts),
	})
}

// Activate applies a pending gift
func (h *GiftHandler) Activate(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	giftID, err := strconv.ParseInt(c.Param("gift_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid gift ID", err)
		return
	}

	result, err := h.giftService.Activate(c.Request.Context(), ownerID, giftID)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.Error(c, http.StatusNotFound, "gift not found", err)
		case xerrors.Is(err, xerrors.ErrForbidden):
			response.Error(c, http.StatusForbidden, "gift belongs to another owner", err)
		case xerrors.Is(err, xerrors.ErrGiftAlreadyActivated):
			response.Error(c, http.StatusConflict, "gift already activated", err)
		case xerrors.Is(err, xerrors.ErrGiftExpired):
			response.Error(c, http.StatusGone, "gift expired", err)
		case xerrors.Is(err, xerrors.ErrListingNotEligible):
			response.Error(c, http.StatusConflict, "listing cannot receive the gift", err)
		case xerrors.Is(err, xerrors.ErrConcurrentModification):
			response.Error(c, http.StatusConflict, "gift state changed concurrently, retry", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to activate gift", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "gift activated", result)
}

// ActivateTrial starts the one-time trial for the owner
func (h *GiftHandler) ActivateTrial(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	result, err := h.giftService.ActivateTrial(c.Request.Context(), ownerID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrTrialAlreadyUsed) {
			response.Error(c, http.StatusConflict, "trial already used", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to activate trial", err)
		return
	}

	response.Success(c, http.StatusOK, "trial activated", result)
}

// ========== Staff Endpoints ==========

// Send creates a pending gift for an owner
func (h *GiftHandler) Send(c *gin.Context) {
	staffID := middleware.MustGetIdentityID(c)

	var req gift.SendGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	g, err := h.giftService.SendGift(c.Request.Context(), staffID, &req)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.Error(c, http.StatusNotFound, "listing not found", err)
		case xerrors.Is(err, xerrors.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "invalid gift", err)
		case xerrors.Is(err, xerrors.ErrConflict):
			response.Error(c, http.StatusConflict, "duplicate pending gift", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to send gift", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "gift sent", g)
}

// ActivateTrialFor starts the one-time trial on an owner's behalf
func (h *GiftHandler) ActivateTrialFor(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid owner ID", err)
		return
	}

	result, err := h.giftService.ActivateTrial(c.Request.Context(), ownerID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrTrialAlreadyUsed) {
			response.Error(c, http.StatusConflict, "trial already used", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to activate trial", err)
		return
	}

	response.Success(c, http.StatusOK, "trial activated", result)
}
