package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/repository"
	"github.com/Jiang-hao/hostWalletService/internal/service"
)

type BookingHandler struct {
	bookingService service.BookingService
	hosts          repository.HostRepository
	logger         *zap.Logger
}

func NewBookingHandler(bookingService service.BookingService, hosts repository.HostRepository, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, hosts: hosts, logger: logger}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid booking request")
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, booking)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}

// AcceptBooking accepts on behalf of the caller's host profile.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}

	host, err := h.hosts.GetHostByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.AcceptHost(c.Request.Context(), bookingID, host.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}

func (h *BookingHandler) SelectHost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}

	var req model.SelectHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid host ID")
		return
	}

	booking, err := h.bookingService.SelectHost(c.Request.Context(), userID, bookingID, req.HostID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}

func bookingParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
