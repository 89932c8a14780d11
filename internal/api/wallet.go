package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/service"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type WalletHandler struct {
	walletService     service.WalletService
	withdrawalService service.WithdrawalService
	logger            *zap.Logger
}

func NewWalletHandler(walletService service.WalletService, withdrawalService service.WithdrawalService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, withdrawalService: withdrawalService, logger: logger}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	summary, err := h.walletService.GetWalletSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, summary)
}

func (h *WalletHandler) GetTransactionHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}

	transactions, pagination, err := h.walletService.GetTransactionHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"transactions": model.TransactionResponses(transactions),
		"pagination":   pagination,
	})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid amount")
		return
	}
	amount, err := util.ParseAmount(req.Amount.String())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		key = req.IdempotencyKey
	}

	withdrawal, err := h.walletService.RequestWithdrawal(c.Request.Context(), userID, amount, key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, withdrawal.Response())
}

func (h *WalletHandler) GetWithdrawals(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}

	withdrawals, pagination, err := h.withdrawalService.GetHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"withdrawals": model.WithdrawalResponses(withdrawals),
		"pagination":  pagination,
	})
}

func (h *WalletHandler) CancelWithdrawal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid withdrawal ID")
		return
	}

	withdrawal, err := h.withdrawalService.CancelWithdrawal(c.Request.Context(), userID, withdrawalID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, withdrawal.Response())
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(util.DefaultPage)))
	if err != nil || page < 1 {
		respondMessage(c, http.StatusBadRequest, "invalid page number")
		return 0, 0, false
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(util.DefaultPageSize)))
	if err != nil || limit < 1 || limit > util.MaxPageSize {
		respondMessage(c, http.StatusBadRequest, "invalid page size")
		return 0, 0, false
	}
	return page, limit, true
}
