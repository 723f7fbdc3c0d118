// README: Dashboard session view and health handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dinecall/internal/modules/session"
)

type SessionReader interface {
	GetForDashboard(ctx context.Context, id string) (session.View, error)
	Count() int
}

type SessionHandler struct {
	sessions SessionReader
	adapters map[string]string
}

// NewSessionHandler serves dashboard lookups. adapters names the configured
// extractor, searcher and notifier for the health report.
func NewSessionHandler(sessions SessionReader, adapters map[string]string) *SessionHandler {
	return &SessionHandler{sessions: sessions, adapters: adapters}
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}
	view, err := h.sessions.GetForDashboard(c.Request.Context(), id)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

// Health handles GET /health.
func (h *SessionHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"active_sessions": h.sessions.Count(),
	}
	for k, v := range h.adapters {
		body[k] = v
	}
	writeJSON(c, http.StatusOK, body)
}
