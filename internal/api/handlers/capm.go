package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/capm-lab-go/internal/capm"
	"github.com/irfndi/capm-lab-go/internal/middleware"
	"github.com/irfndi/capm-lab-go/internal/models"
	"github.com/irfndi/capm-lab-go/internal/services"
	"github.com/irfndi/capm-lab-go/internal/utils"
)

// CAPMHandler serves the stateless model endpoints.
type CAPMHandler struct {
	lab *services.LabService
}

// DomainsResponse lists the bounds of every control.
type DomainsResponse struct {
	Domains capm.Domains  `json:"domains"`
	Axis    capm.BetaAxis `json:"axis"`
}

func NewCAPMHandler(lab *services.LabService) *CAPMHandler {
	return &CAPMHandler{lab: lab}
}

// GetDomains returns the slider and number-input bounds.
func (h *CAPMHandler) GetDomains(c *gin.Context) {
	c.JSON(http.StatusOK, DomainsResponse{
		Domains: h.lab.Domains(),
		Axis:    h.lab.Axis(),
	})
}

// CalculateQuery evaluates the model from query parameters; missing values
// fall back to the slider defaults.
func (h *CAPMHandler) CalculateQuery(c *gin.Context) {
	in, err := h.queryInputs(c)
	if err != nil {
		respondError(c, err)
		return
	}
	h.calculate(c, in)
}

// Calculate evaluates the model for a JSON input tuple.
func (h *CAPMHandler) Calculate(c *gin.Context) {
	in := h.lab.Domains().DefaultInputs()
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.calculate(c, in)
}

func (h *CAPMHandler) calculate(c *gin.Context, in capm.Inputs) {
	middleware.AddSpanAttribute(c, "capm.beta", in.Beta)

	snapshot, err := h.lab.Calculate(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetSML returns the Security Market Line chart for the query inputs.
func (h *CAPMHandler) GetSML(c *gin.Context) {
	in, err := h.queryInputs(c)
	if err != nil {
		respondError(c, err)
		return
	}

	axis := h.lab.Axis()
	if axis.Min, err = queryFloat(c, "beta_min", axis.Min); err != nil {
		respondError(c, err)
		return
	}
	if axis.Max, err = queryFloat(c, "beta_max", axis.Max); err != nil {
		respondError(c, err)
		return
	}
	if raw := c.Query("points"); raw != "" {
		points, convErr := strconv.Atoi(raw)
		if convErr != nil {
			respondError(c, utils.NewValidationErrorf("points", "must be an integer, got %q", raw))
			return
		}
		axis.Points = points
	}

	chart, err := h.lab.SecurityMarketLine(in, axis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// RequiredBeta solves the CAPM for the beta that hits a target return.
func (h *CAPMHandler) RequiredBeta(c *gin.Context) {
	in := h.lab.Domains().DefaultChallenge()
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.lab.Challenge(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EstimateBeta derives a historical beta from two price series.
func (h *CAPMHandler) EstimateBeta(c *gin.Context) {
	var req models.BetaEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	estimate, err := h.lab.EstimateBeta(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

func (h *CAPMHandler) queryInputs(c *gin.Context) (capm.Inputs, error) {
	in := h.lab.Domains().DefaultInputs()
	var err error
	if in.RiskFreeRate, err = queryFloat(c, "rf", in.RiskFreeRate); err != nil {
		return capm.Inputs{}, err
	}
	if in.Beta, err = queryFloat(c, "beta", in.Beta); err != nil {
		return capm.Inputs{}, err
	}
	if in.MarketReturn, err = queryFloat(c, "market", in.MarketReturn); err != nil {
		return capm.Inputs{}, err
	}
	if in.ActualReturn, err = queryFloat(c, "actual", in.ActualReturn); err != nil {
		return capm.Inputs{}, err
	}
	return in, nil
}

func queryFloat(c *gin.Context, key string, fallback float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, utils.NewValidationErrorf(key, "must be a number, got %q", raw)
	}
	return v, utils.ValidateFinite(key, v)
}
