package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"medsbuddy/internal/auth"
	"medsbuddy/internal/service"
)

const (
	msgInternal   = "Internal server error"
	msgValidation = "Validation error"
)

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondError translates a domain error into its HTTP status and body and
// aborts the chain. Unknown errors are logged and reported generically.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		fields := make([]fieldErrorResponse, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = fieldErrorResponse{Field: f.Field, Message: f.Message}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msgValidation, "errors": fields})
	case errors.Is(err, auth.ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
	case errors.Is(err, auth.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
	case errors.Is(err, service.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "User with this email already exists"})
	case errors.Is(err, service.ErrUsernameTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "User with this username already exists"})
	case errors.Is(err, service.ErrUserNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, service.ErrMedicationNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Medication not found"})
	case errors.Is(err, service.ErrAlreadyMarked):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Medication already marked as taken today"})
	default:
		h.logger.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgInternal})
	}
}

// respondBindError reports a request body that failed to decode or validate.
func (h *Handler) respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": msgValidation,
			"errors":  []fieldErrorResponse{{Field: "body", Message: "request body must be valid JSON"}},
		})
		return
	}

	fields := make([]fieldErrorResponse, len(verrs))
	for i, fe := range verrs {
		name := jsonFieldName(fe.Field())
		fields[i] = fieldErrorResponse{Field: name, Message: validationMessage(name, fe)}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msgValidation, "errors": fields})
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		if field == "password" {
			return "Password must be at least " + fe.Param() + " characters"
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if field == "password" {
			return "Password must be at most " + fe.Param() + " characters"
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return field + " is invalid"
	}
}

// jsonFieldName maps a Go struct field to the camelCase key clients send.
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
