package handlers

import (
	"net/http"
	"time"

	"parkly/middleware"
	"parkly/models"
	"parkly/services/booking"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

// LocationHandler ingests driver location streams.
type LocationHandler struct {
	Engine booking.BookingService
}

func NewLocationHandler(engine booking.BookingService) *LocationHandler {
	return &LocationHandler{Engine: engine}
}

type locationUpdateRequest struct {
	Lat       float64 `json:"lat" binding:"required"`
	Lng       float64 `json:"lng" binding:"required"`
	Timestamp string  `json:"timestamp,omitempty"` // RFC3339; defaults to now
}

// Update handles POST /bookings/:id/location.
func (h *LocationHandler) Update(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var req locationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid timestamp", err.Error())
			return
		}
		ts = parsed
	}

	sample := models.LocationSample{Lat: req.Lat, Lng: req.Lng, Timestamp: ts}
	if err := h.Engine.HandleLocationUpdate(c.Request.Context(), actor, c.Param("id"), sample); err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
