package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/transport/push"
)

// Stream serves the push channel (§6) at GET /api/stream.
func (h *Handler) Stream(hub *push.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := hub.NewClient()
		defer hub.RemoveClient(client)
		hub.ServeHTTP(c.Writer, c.Request, client)
	}
}
