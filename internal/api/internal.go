package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/service"
)

// InternalHandler serves the callbacks from the payment gateway and the
// payout processor.
type InternalHandler struct {
	bookingService    service.BookingService
	walletService     service.WalletService
	withdrawalService service.WithdrawalService
	logger            *zap.Logger
}

func NewInternalHandler(
	bookingService service.BookingService,
	walletService service.WalletService,
	withdrawalService service.WithdrawalService,
	logger *zap.Logger,
) *InternalHandler {
	return &InternalHandler{
		bookingService:    bookingService,
		walletService:     walletService,
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// ConfirmPayment marks the booking paid and credits the selected host. Both
// steps are idempotent, so the gateway may redeliver the event.
func (h *InternalHandler) ConfirmPayment(c *gin.Context) {
	var req model.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid payment confirmation")
		return
	}

	ctx := c.Request.Context()
	booking, err := h.bookingService.MarkPaymentCompleted(ctx, req.BookingID, req.PaymentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	txn, err := h.walletService.CreditBookingPayment(ctx, req.BookingID, req.PaymentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"booking":     booking,
		"transaction": txn.Response(),
	})
}

func (h *InternalHandler) UpdateWithdrawalStatus(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid withdrawal ID")
		return
	}

	var req model.WithdrawalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid status request")
		return
	}

	withdrawal, err := h.withdrawalService.AdvanceWithdrawal(c.Request.Context(), withdrawalID, service.AdvanceRequest{
		Status:        req.Status,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, withdrawal)
}

func (h *InternalHandler) CompleteBooking(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.CompleteBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}
