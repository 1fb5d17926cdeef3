package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/capm-lab-go/internal/cache"
	"github.com/irfndi/capm-lab-go/internal/capm"
	"github.com/irfndi/capm-lab-go/internal/database"
	"github.com/irfndi/capm-lab-go/internal/middleware"
	"github.com/irfndi/capm-lab-go/internal/services"
	"github.com/irfndi/capm-lab-go/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
		_ = c.Error(err)
	}

	middleware.RecordError(c, err, code)
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func classifyError(err error) (int, string) {
	switch {
	case utils.IsValidationError(err):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, capm.ErrInsufficientData):
		return http.StatusBadRequest, "insufficient_data"
	case errors.Is(err, cache.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, cache.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, capm.ErrUnknownPreset), errors.Is(err, database.ErrPresetNotFound):
		return http.StatusNotFound, "preset_not_found"
	case errors.Is(err, capm.ErrZeroRiskPremium):
		return http.StatusUnprocessableEntity, "zero_risk_premium"
	case errors.Is(err, capm.ErrZeroMarketVariance):
		return http.StatusUnprocessableEntity, "zero_market_variance"
	case errors.Is(err, services.ErrPresetsUnavailable):
		return http.StatusServiceUnavailable, "presets_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_input", Message: message})
}
