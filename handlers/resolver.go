package handlers

import (
	"errors"
	"net/http"

	bookingRepo "parkly/database/repository/booking"
	"parkly/middleware"
	"parkly/models"
	"parkly/services/resolver"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

// ResolverHandler exposes the expiration resolver.
type ResolverHandler struct {
	Resolver resolver.Resolver
}

func NewResolverHandler(res resolver.Resolver) *ResolverHandler {
	return &ResolverHandler{Resolver: res}
}

// Analyze handles GET /resolver/bookings/:id.
func (h *ResolverHandler) Analyze(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	analysis, err := h.Resolver.Analyze(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondResolverError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// Execute handles POST /resolver/bookings/:id.
func (h *ResolverHandler) Execute(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var req models.ResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.BookingID = c.Param("id")

	b, err := h.Resolver.Execute(c.Request.Context(), actor, req)
	if err != nil {
		respondResolverError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func respondResolverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound):
		utils.JSONErrorCode(c, http.StatusNotFound, "not_found", "Booking not found")
	case errors.Is(err, resolver.ErrNotAllowed):
		utils.JSONErrorCode(c, http.StatusForbidden, "not_allowed", "Operation not allowed")
	case errors.Is(err, resolver.ErrNotStalled):
		utils.JSONErrorCode(c, http.StatusConflict, "not_stalled", err.Error())
	case errors.Is(err, resolver.ErrInvalidResolution):
		utils.JSONErrorCode(c, http.StatusUnprocessableEntity, "invalid_resolution", err.Error())
	default:
		respondBookingError(c, err)
	}
}
