package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investment-platform/internal/auth"
	"investment-platform/internal/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// GetReferralCode returns the caller's referral code
func (h *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	code, err := h.referralService.EnsureReferralCode(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"code": code},
	})
}

// ApplyReferralCode links the caller to a referrer
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.referralService.ApplyReferralCode(userID, req.Code); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral code applied successfully",
	})
}

// GetReferralStats returns the caller's referral statistics
func (h *ReferralHandler) GetReferralStats(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.referralService.GetReferralStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetReferrals lists the users the caller referred
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	referrals, err := h.referralService.GetReferrals(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
	})
}
