package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/capm-lab-go/internal/middleware"
	"github.com/irfndi/capm-lab-go/internal/models"
	"github.com/irfndi/capm-lab-go/internal/services"
)

// SessionHandler serves the per-visitor lab state.
type SessionHandler struct {
	lab *services.LabService
}

func NewSessionHandler(lab *services.LabService) *SessionHandler {
	return &SessionHandler{lab: lab}
}

// CreateSession starts a session on the default preset.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	snapshot, err := h.lab.CreateSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.SessionIDKey, snapshot.SessionID)
	c.JSON(http.StatusCreated, snapshot)
}

// GetSession returns the current snapshot of a session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := sessionID(c)
	snapshot, err := h.lab.Snapshot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// UpdateInputs applies a partial slider update.
func (h *SessionHandler) UpdateInputs(c *gin.Context) {
	id := sessionID(c)

	var patch models.InputPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snapshot, err := h.lab.UpdateInputs(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Reset restores the default preset.
func (h *SessionHandler) Reset(c *gin.Context) {
	snapshot, err := h.lab.Reset(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ApplyPreset loads a named preset into the session.
func (h *SessionHandler) ApplyPreset(c *gin.Context) {
	name := c.Param("name")
	middleware.AddSpanAttribute(c, "capm.preset", name)

	snapshot, err := h.lab.ApplyPreset(c.Request.Context(), sessionID(c), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// UpdateChallenge applies a partial challenge calculator update.
func (h *SessionHandler) UpdateChallenge(c *gin.Context) {
	id := sessionID(c)

	var patch models.ChallengePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.lab.UpdateChallenge(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteSession ends a session.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.lab.DeleteSession(c.Request.Context(), sessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func sessionID(c *gin.Context) string {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	middleware.AddSpanAttribute(c, "session.id", id)
	return id
}
