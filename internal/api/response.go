package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/errors"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func statusFor(kind errors.ErrorType) int {
	switch kind {
	case errors.NotFound:
		return http.StatusNotFound
	case errors.InvalidAmount, errors.InvalidRequest, errors.IncompleteBankDetails,
		errors.InvalidHost, errors.HostNotSelected, errors.PaymentNotCompleted:
		return http.StatusBadRequest
	case errors.InsufficientFund:
		return http.StatusUnprocessableEntity
	case errors.AlreadySelected, errors.InvalidStateTransition, errors.Conflict:
		return http.StatusConflict
	case errors.Unauthorized:
		return http.StatusForbidden
	case errors.Indeterminate:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error onto the envelope. Internal causes are
// logged and never returned to the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(errors.KindOf(err))
	typed, ok := errors.AsTyped(err)
	if !ok || status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.Warn("request outcome unknown", zap.String("path", c.FullPath()), zap.Error(err))
	}
	respondMessage(c, status, typed.Message)
}
