package handlers

import (
	"net/http"
	"strconv"

	"parkly/middleware"
	"parkly/models"
	"parkly/services/wallet"
	"parkly/utils"

	"github.com/gin-gonic/gin"
)

// WalletHandler exposes wallet balance, top-up, and the transaction log.
type WalletHandler struct {
	Ledger wallet.LedgerService
}

func NewWalletHandler(ledger wallet.LedgerService) *WalletHandler {
	return &WalletHandler{Ledger: ledger}
}

// Balance handles GET /wallet.
func (h *WalletHandler) Balance(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	available, err := h.Ledger.AvailableBalance(c.Request.Context(), actor.ID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load balance", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner_id": actor.ID, "available": available})
}

type topUpRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// TopUp handles POST /wallet/topup. Payment provider integration sits in
// front of this in production; here the credit lands directly.
func (h *WalletHandler) TopUp(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "Invalid amount", "")
		return
	}
	ref, err := h.Ledger.Credit(c.Request.Context(), actor.ID, req.Amount, "", "wallet top-up")
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Top-up failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference": ref})
}

// Transactions handles GET /wallet/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.TransactionFilter{
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
		BookingID: c.Query("booking_id"),
	}
	txs, err := h.Ledger.ListTransactions(c.Request.Context(), actor.ID, filter, page, pageSize)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load transactions", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
