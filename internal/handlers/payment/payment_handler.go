// internal/handlers/payment/payment_handler.go
package payment

import (
	"net/http"

	"pochasovo-service/internal/domain/account"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/account"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	accountService *service.AccountService
}

func NewPaymentHandler(accountService *service.AccountService) *PaymentHandler {
	return &PaymentHandler{
		accountService: accountService,
	}
}

// Webhook handles payment-gateway confirmation callbacks. The gateway
// retries until it sees a 2xx, so a duplicate delivery must return the
// original result, not an error.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var conf account.TopUpConfirmation
	if err := c.ShouldBindJSON(&conf); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid webhook payload", err)
		return
	}

	tr, err := h.accountService.ConfirmTopUp(c.Request.Context(), &conf)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "owner account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to confirm top-up", err)
		return
	}

	response.Success(c, http.StatusOK, "top-up confirmed", tr)
}
