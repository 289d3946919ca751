package handlers

import (
	"net/http"
	"time"

	"parkly/models"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

const tokenLifetime = 24 * time.Hour

type tokenRequest struct {
	ID   string `json:"id" binding:"required"`
	Role string `json:"role" binding:"required"`
}

// IssueToken handles POST /auth/token. It stands in for the identity
// provider: given an id and role it mints a signed session token.
func IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	switch req.Role {
	case models.RoleDriver, models.RoleLandlord, models.RoleAdmin:
	default:
		utils.JSONError(c, http.StatusBadRequest, "Unknown role", req.Role)
		return
	}
	token, err := utils.GenerateToken(req.ID, req.Role, tokenLifetime)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to issue token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(tokenLifetime.Seconds())})
}
