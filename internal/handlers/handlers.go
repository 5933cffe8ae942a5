package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"investment-platform/internal/apperrors"
)

// validPixKeyTypes are the key kinds the PIX rail accepts
var validPixKeyTypes = map[string]bool{
	"cpf":    true,
	"cnpj":   true,
	"email":  true,
	"phone":  true,
	"random": true,
}

// RegisterValidations installs custom binding validations on gin's
// validator engine. Call once at startup.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("pixkeytype", func(fl validator.FieldLevel) bool {
			return validPixKeyTypes[fl.Field().String()]
		})
	}
}

// writeError maps application errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
