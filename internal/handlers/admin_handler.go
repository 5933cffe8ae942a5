package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"investment-platform/internal/models"
	"investment-platform/internal/services"
)

type AdminHandler struct {
	db          *gorm.DB
	userService *services.UserService
}

func NewAdminHandler(db *gorm.DB, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		db:          db,
		userService: userService,
	}
}

// GetUsers lists accounts with paging
func (h *AdminHandler) GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	users, err := h.userService.ListUsers(limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// DeactivateUser soft-deactivates an account
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if err := h.userService.DeactivateUser(uint(id)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deactivated",
	})
}

// GetWithdrawals lists PIX withdrawals for review, newest first
func (h *AdminHandler) GetWithdrawals(c *gin.Context) {
	status := c.Query("status")

	query := h.db.Where("type = ?", models.TransactionTypeWithdrawal)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var withdrawals []models.Transaction
	if err := query.Order("created_at DESC").Limit(200).Find(&withdrawals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch withdrawals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    withdrawals,
	})
}

// GetPlatformStats returns aggregate counters for the dashboard
func (h *AdminHandler) GetPlatformStats(c *gin.Context) {
	var userCount, investmentCount, transactionCount int64

	h.db.Model(&models.User{}).Count(&userCount)
	h.db.Model(&models.Investment{}).Where("status = ?", models.InvestmentStatusActive).Count(&investmentCount)
	h.db.Model(&models.Transaction{}).Count(&transactionCount)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"users":              userCount,
			"active_investments": investmentCount,
			"transactions":       transactionCount,
		},
	})
}
