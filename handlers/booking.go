package handlers

import (
	"errors"
	"net/http"

	bookingRepo "parkly/database/repository/booking"
	"parkly/middleware"
	"parkly/models"
	"parkly/services/booking"
	"parkly/services/wallet"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Engine booking.BookingService
}

func NewBookingHandler(engine booking.BookingService) *BookingHandler {
	return &BookingHandler{Engine: engine}
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	b, err := h.Engine.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	b, err := h.Engine.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// List handles GET /bookings for the authenticated driver or landlord.
func (h *BookingHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var (
		list []models.Booking
		err  error
	)
	if actor.Role == models.RoleLandlord {
		list, err = h.Engine.ListForLandlord(c.Request.Context(), actor, 0)
	} else {
		list, err = h.Engine.ListForDriver(c.Request.Context(), actor, 0)
	}
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// Accept handles POST /bookings/:id/accept.
func (h *BookingHandler) Accept(c *gin.Context) {
	h.transition(c, func(actor models.Actor, id string) (*models.Booking, error) {
		return h.Engine.Accept(c.Request.Context(), actor, id)
	})
}

// Reject handles POST /bookings/:id/reject.
func (h *BookingHandler) Reject(c *gin.Context) {
	reason := bindReason(c)
	h.transition(c, func(actor models.Actor, id string) (*models.Booking, error) {
		return h.Engine.Reject(c.Request.Context(), actor, id, reason)
	})
}

// Cancel handles POST /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	reason := bindReason(c)
	h.transition(c, func(actor models.Actor, id string) (*models.Booking, error) {
		return h.Engine.Cancel(c.Request.Context(), actor, id, reason)
	})
}

// CheckIn handles POST /bookings/:id/checkin.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.transition(c, func(actor models.Actor, id string) (*models.Booking, error) {
		return h.Engine.CheckIn(c.Request.Context(), actor, id)
	})
}

// CheckOut handles POST /bookings/:id/checkout.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.transition(c, func(actor models.Actor, id string) (*models.Booking, error) {
		return h.Engine.CheckOut(c.Request.Context(), actor, id)
	})
}

func (h *BookingHandler) transition(c *gin.Context, op func(models.Actor, string) (*models.Booking, error)) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	b, err := op(actor, c.Param("id"))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func bindReason(c *gin.Context) string {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	return body.Reason
}

// respondBookingError maps engine errors onto HTTP statuses with stable codes.
func respondBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound):
		utils.JSONErrorCode(c, http.StatusNotFound, "not_found", "Booking not found")
	case errors.Is(err, booking.ErrNotAllowed):
		utils.JSONErrorCode(c, http.StatusForbidden, "not_allowed", "Operation not allowed")
	case errors.Is(err, booking.ErrValidation), errors.Is(err, booking.ErrVehicleInvalid):
		utils.JSONErrorCode(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, booking.ErrSpaceUnavailable), errors.Is(err, booking.ErrWindowUnavailable):
		utils.JSONErrorCode(c, http.StatusConflict, "unavailable", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		utils.JSONErrorCode(c, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrCheckoutWindowExceeded):
		utils.JSONErrorCode(c, http.StatusConflict, "checkout_window_exceeded", err.Error())
	case wallet.IsInsufficientFunds(err):
		utils.JSONErrorCode(c, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, bookingRepo.ErrVersionConflict):
		utils.JSONErrorCode(c, http.StatusConflict, "conflict", "Booking was modified concurrently, retry")
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}
