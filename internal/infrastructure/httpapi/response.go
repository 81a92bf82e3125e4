package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondErr maps service errors to a status and a stable code.
func respondErr(c *gin.Context, err error) {
	status, code := classify(err)
	RespondError(c, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, application.ErrWrongStep):
		return http.StatusConflict, "wrong_step"
	case errors.Is(err, application.ErrNoPendingImage):
		return http.StatusConflict, "no_pending_image"
	case errors.Is(err, application.ErrEmptyImage):
		return http.StatusBadRequest, "empty_image"
	case errors.Is(err, application.ErrQualityGateFailed):
		return http.StatusUnprocessableEntity, "quality_gate_failed"
	case errors.Is(err, application.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "missing_api_key"
	case errors.Is(err, application.ErrNoSinks):
		return http.StatusServiceUnavailable, "dispatch_unconfigured"
	case errors.Is(err, geo.ErrAddressNotFound):
		return http.StatusNotFound, "address_not_found"
	case errors.Is(err, geo.ErrLookupFailed):
		return http.StatusBadGateway, "lookup_failed"
	case errors.Is(err, report.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, "invalid_document"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
