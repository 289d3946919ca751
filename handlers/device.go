package handlers

import (
	"net/http"

	"parkly/middleware"
	"parkly/services/notification"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers push tokens for the notification sink.
type DeviceHandler struct {
	Tokens *notification.RedisTokenSource
}

func NewDeviceHandler(tokens *notification.RedisTokenSource) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens}
}

type registerTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken handles PUT /devices/token.
func (h *DeviceHandler) RegisterToken(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.Tokens.RegisterToken(c.Request.Context(), actor.ID, req.Token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to register token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
