// Package httpapi is the External Interface Layer (§6): gin handlers and
// router wiring the Conversation Agent to HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the error body of a non-2xx reply. Code is one of the exit
// conditions named in §6 (BUSY, INVALID_INPUT, INVALID_STATE, NOT_FOUND,
// INTERNAL).
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorEnvelope wraps APIError the way response.ErrorEnvelope does in the
// teacher's pack sibling, carrying the request's correlation id for log
// cross-reference.
type ErrorEnvelope struct {
	Error         APIError `json:"error"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error:         APIError{Message: msg, Code: code},
		CorrelationID: correlationID(c),
	})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func correlationID(c *gin.Context) string {
	if v, ok := c.Get("correlation_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
