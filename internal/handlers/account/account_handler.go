// internal/handlers/account/account_handler.go
package account

import (
	"net/http"
	"strconv"

	"pochasovo-service/internal/domain/account"
	"pochasovo-service/internal/middleware"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/response"
	service "pochasovo-service/internal/service/account"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// GetBalance returns the authenticated owner's balances
func (h *AccountHandler) GetBalance(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	acc, err := h.accountService.GetAccount(c.Request.Context(), ownerID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load account", err)
		return
	}

	response.Success(c, http.StatusOK, "account retrieved", gin.H{
		"real_balance":  acc.RealBalance,
		"bonus_balance": acc.BonusBalance,
		"spendable":     acc.Spendable(),
	})
}

// ListTransactions returns a page of the owner's transaction history
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	var filters account.TransactionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	txs, err := h.accountService.ListTransactions(c.Request.Context(), ownerID, &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	response.Success(c, http.StatusOK, "transactions retrieved", gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// CreateTopUpIntent returns a payment reference for the gateway
func (h *AccountHandler) CreateTopUpIntent(c *gin.Context) {
	ownerID := middleware.MustGetIdentityID(c)

	var req account.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	intent, err := h.accountService.CreateTopUpIntent(c.Request.Context(), ownerID, req.Amount)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrNotFound):
			response.Error(c, http.StatusNotFound, "account not found", err)
		case xerrors.Is(err, xerrors.ErrForbidden):
			response.Error(c, http.StatusForbidden, "account is archived", err)
		case xerrors.Is(err, xerrors.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "invalid top-up", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to create top-up intent", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "top-up intent created", intent)
}

// ========== Staff Endpoints ==========

// GetOwnerAccount returns any owner's account for the admin surface
func (h *AccountHandler) GetOwnerAccount(c *gin.Context) {
	ownerID, err := parseOwnerID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid owner ID", err)
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), ownerID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load account", err)
		return
	}

	response.Success(c, http.StatusOK, "account retrieved", acc)
}

// CreditOwner credits an owner's balance on behalf of staff
func (h *AccountHandler) CreditOwner(c *gin.Context) {
	staffID := middleware.MustGetIdentityID(c)

	ownerID, err := parseOwnerID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid owner ID", err)
		return
	}

	var req account.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	txType := account.TransactionBonusGrant
	if req.Target == account.BalanceReal {
		txType = account.TransactionRefund
	}

	tr, err := h.accountService.Credit(
		c.Request.Context(), ownerID, req.Amount, req.Target, txType, req.Description, &staffID,
	)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		if xerrors.Is(err, xerrors.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "invalid credit", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to credit account", err)
		return
	}

	response.Success(c, http.StatusCreated, "account credited", tr)
}

// VerifyOwnerLedger replays an owner's ledger against the stored balances
func (h *AccountHandler) VerifyOwnerLedger(c *gin.Context) {
	ownerID, err := parseOwnerID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid owner ID", err)
		return
	}

	report, err := h.accountService.VerifyReplay(c.Request.Context(), ownerID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "account not found", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to verify ledger", err)
		return
	}

	response.Success(c, http.StatusOK, "ledger verified", report)
}

func parseOwnerID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("owner_id"), 10, 64)
}
