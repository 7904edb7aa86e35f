// Package response provides the standardized JSON envelope used by
// every config-API handler, mirroring gpt-load's internal/response
// (minus its i18n message lookup, which this proxy has no use for).
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Silver-Larry/droid-byok-unleashed/internal/errors"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope: `{error:{type, message}}`.
type ErrorResponse struct {
	ErrorBody ErrorBody `json:"error"`
}

// ErrorBody carries the error type and message.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Success sends {success:true, data:...} with HTTP 200.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Error sends the canonical error envelope at apiErr's HTTP status.
func Error(c *gin.Context, apiErr *apperrors.APIError) {
	c.JSON(apiErr.HTTPStatus, ErrorResponse{
		ErrorBody: ErrorBody{Type: apiErr.Code, Message: apiErr.Message},
	})
}

// HandleServiceError normalizes any error into the canonical response.
// Returns true if a response was written. Mirrors gpt-load's
// HandleServiceError but without the I18nError branch this proxy has
// no equivalent of.
func HandleServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := err.(*apperrors.APIError); ok {
		Error(c, apiErr)
		return true
	}
	Error(c, apperrors.NewAPIError(apperrors.ErrInternal, err.Error()))
	return true
}
