package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/capm-lab-go/internal/capm"
	"github.com/irfndi/capm-lab-go/internal/services"
)

// PresetHandler lists presets and manages custom labs.
type PresetHandler struct {
	lab *services.LabService
}

// PresetsResponse is the preset table in display order.
type PresetsResponse struct {
	Presets []capm.Preset `json:"presets"`
	Count   int           `json:"count"`
}

// PresetRequest is the body of a custom preset upsert.
type PresetRequest struct {
	Title   string      `json:"title"`
	Inputs  capm.Inputs `json:"inputs"`
	Summary string      `json:"summary"`
	Tasks   []string    `json:"tasks"`
}

func NewPresetHandler(lab *services.LabService) *PresetHandler {
	return &PresetHandler{lab: lab}
}

// GetPresets returns the built-in and custom presets.
func (h *PresetHandler) GetPresets(c *gin.Context) {
	presets := h.lab.Presets(c.Request.Context()).Sorted()
	c.JSON(http.StatusOK, PresetsResponse{Presets: presets, Count: len(presets)})
}

// GetCustomPreset returns a stored custom preset with its last update time.
func (h *PresetHandler) GetCustomPreset(c *gin.Context) {
	record, err := h.lab.CustomPreset(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpsertPreset creates or replaces a custom preset.
func (h *PresetHandler) UpsertPreset(c *gin.Context) {
	var req PresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	preset, err := h.lab.SavePreset(c.Request.Context(), capm.Preset{
		Name:    c.Param("name"),
		Title:   req.Title,
		Inputs:  req.Inputs,
		Summary: req.Summary,
		Tasks:   req.Tasks,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preset)
}

// DeletePreset removes a custom preset.
func (h *PresetHandler) DeletePreset(c *gin.Context) {
	if err := h.lab.DeletePreset(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
