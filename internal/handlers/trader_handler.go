package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"investment-platform/internal/models"
	"investment-platform/internal/services"
)

type TraderHandler struct {
	traderService *services.TraderService
}

func NewTraderHandler(traderService *services.TraderService) *TraderHandler {
	return &TraderHandler{traderService: traderService}
}

// GetTraders returns the public trader catalog
func (h *TraderHandler) GetTraders(c *gin.Context) {
	traders, err := h.traderService.ListActiveTraders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch traders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    traders,
	})
}

// GetTrader returns one catalog entry
func (h *TraderHandler) GetTrader(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trader id"})
		return
	}

	trader, err := h.traderService.GetTraderByID(uint(id))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    trader,
	})
}

type CreateTraderRequest struct {
	Name        string          `json:"name" binding:"required,min=2,max=100"`
	Description string          `json:"description"`
	SuccessRate decimal.Decimal `json:"success_rate" binding:"required"`
	PeriodDays  int             `json:"period_days" binding:"required,min=1"`
	MinAmount   decimal.Decimal `json:"min_amount" binding:"required"`
	MaxAmount   decimal.Decimal `json:"max_amount" binding:"required"`
}

// CreateTrader adds a catalog entry (admin only)
func (h *TraderHandler) CreateTrader(c *gin.Context) {
	var req CreateTraderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trader := models.Trader{
		Name:        req.Name,
		Description: req.Description,
		SuccessRate: req.SuccessRate,
		PeriodDays:  req.PeriodDays,
		MinAmount:   req.MinAmount,
		MaxAmount:   req.MaxAmount,
	}

	if err := h.traderService.CreateTrader(&trader); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    trader,
	})
}

type UpdateTraderRequest struct {
	SuccessRate *decimal.Decimal     `json:"success_rate"`
	PeriodDays  *int                 `json:"period_days"`
	MinAmount   *decimal.Decimal     `json:"min_amount"`
	MaxAmount   *decimal.Decimal     `json:"max_amount"`
	Status      *models.TraderStatus `json:"status"`
}

// UpdateTrader edits a catalog entry (admin only)
func (h *TraderHandler) UpdateTrader(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trader id"})
		return
	}

	var req UpdateTraderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trader, err := h.traderService.UpdateTrader(uint(id), req.SuccessRate, req.MinAmount, req.MaxAmount, req.PeriodDays, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    trader,
	})
}
