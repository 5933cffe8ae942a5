package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investment-platform/internal/services"
)

// WebhookHandler receives payment-provider callbacks. Requests are
// authenticated by comparing the configured API key, not by user JWT.
type WebhookHandler struct {
	pixService *services.PixService
	apiKey     string
}

func NewWebhookHandler(pixService *services.PixService, apiKey string) *WebhookHandler {
	return &WebhookHandler{
		pixService: pixService,
		apiKey:     apiKey,
	}
}

type PaymentWebhookPayload struct {
	Reference  string `json:"reference" binding:"required"`
	Status     string `json:"status" binding:"required"`
	FailReason string `json:"fail_reason"`
}

// HandlePaymentWebhook applies a provider-reported outcome
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	if h.apiKey == "" || c.GetHeader("X-API-Key") != h.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var payload PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch payload.Status {
	case "PAID":
		if _, err := h.pixService.ConfirmPixPayment(payload.Reference); err != nil {
			writeError(c, err)
			return
		}
	case "FAILED", "CANCELLED":
		reason := payload.FailReason
		if reason == "" {
			reason = "rejected by provider"
		}
		if _, err := h.pixService.FailPixTransaction(payload.Reference, reason); err != nil {
			writeError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
