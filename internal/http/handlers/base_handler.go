// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dinecall/internal/modules/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts provider call ids (Twilio CallSids are "CA" + 32 hex) and
// uuids; anything else never names a session.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, session.ErrSessionNotFound.Error())
	case errors.Is(err, session.ErrSessionClosed):
		writeError(c, http.StatusGone, err.Error())
	case errors.Is(err, session.ErrCapacity):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
