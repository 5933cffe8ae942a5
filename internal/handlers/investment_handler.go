package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"investment-platform/internal/auth"
	"investment-platform/internal/services"
)

type InvestmentHandler struct {
	investmentService *services.InvestmentService
}

func NewInvestmentHandler(investmentService *services.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

type CreateInvestmentRequest struct {
	TraderID uint            `json:"trader_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// CreateInvestment opens and activates a position for the caller
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.investmentService.CreateInvestment(userID, req.TraderID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}

	// The principal debit happens at activation; a failed debit leaves
	// the position pending so the caller can retry after a deposit
	activated, err := h.investmentService.ActivateInvestment(inv.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    activated,
	})
}

// GetInvestments lists the caller's positions
func (h *InvestmentHandler) GetInvestments(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	investments, err := h.investmentService.GetUserInvestments(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch investments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    investments,
	})
}

// GetInvestment returns one of the caller's positions
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment id"})
		return
	}

	inv, err := h.investmentService.GetInvestmentByID(uint(id), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv,
	})
}

// CancelInvestment cancels one of the caller's positions
func (h *InvestmentHandler) CancelInvestment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment id"})
		return
	}

	inv, err := h.investmentService.CancelInvestment(uint(id), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv,
	})
}
