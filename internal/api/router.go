package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ServiceName string
	JWTSecret   string
	InternalKey string
}

func NewRouter(
	cfg RouterConfig,
	wallets *WalletHandler,
	bookings *BookingHandler,
	internal *InternalHandler,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(cfg.ServiceName), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		respondOK(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1", AuthMiddleware(cfg.JWTSecret))
	{
		v1.GET("/wallet", wallets.GetWallet)
		v1.GET("/wallet/transactions", wallets.GetTransactionHistory)
		v1.POST("/wallet/withdraw", wallets.Withdraw)
		v1.GET("/wallet/withdrawals", wallets.GetWithdrawals)
		v1.POST("/wallet/withdrawals/:id/cancel", wallets.CancelWithdrawal)

		v1.POST("/bookings", bookings.CreateBooking)
		v1.GET("/bookings/:id", bookings.GetBooking)
		v1.POST("/bookings/:id/accept", bookings.AcceptBooking)
		v1.POST("/bookings/:id/select", bookings.SelectHost)
	}

	in := r.Group("/internal", InternalMiddleware(cfg.InternalKey))
	{
		in.POST("/payments/confirm", internal.ConfirmPayment)
		in.POST("/withdrawals/:id/status", internal.UpdateWithdrawalStatus)
		in.POST("/bookings/:id/complete", internal.CompleteBooking)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}
