package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"investment-platform/internal/auth"
	"investment-platform/internal/services"
)

type TransactionHandler struct {
	pixService *services.PixService
}

func NewTransactionHandler(pixService *services.PixService) *TransactionHandler {
	return &TransactionHandler{pixService: pixService}
}

type CreateDepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type CreateWithdrawalRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	PixKey     string          `json:"pix_key" binding:"required"`
	PixKeyType string          `json:"pix_key_type" binding:"required,pixkeytype"`
}

// CreateDeposit creates a PIX deposit and returns the scannable payload
func (h *TransactionHandler) CreateDeposit(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.pixService.CreatePixDeposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    txn,
	})
}

// CreateWithdrawal creates a PIX withdrawal to the caller's key
func (h *TransactionHandler) CreateWithdrawal(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.pixService.CreatePixWithdrawal(c.Request.Context(), userID, req.Amount, req.PixKey, req.PixKeyType)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    txn,
	})
}

// GetTransactions lists the caller's transactions with paging
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	transactions, err := h.pixService.GetUserTransactions(userID, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
	})
}

// CancelTransaction cancels one of the caller's pending deposits
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.pixService.CancelPixTransaction(c.Param("reference"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    txn,
	})
}
