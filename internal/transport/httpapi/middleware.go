package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
)

// attachCorrelationID generates a correlation id per request so every bus
// message sent while handling it, and any error envelope returned, can be
// tied back to the originating call. The id is stored on the gin context for the error
// envelope and on the request's context.Context so it flows through to
// every bus.Send call the handler makes.
func attachCorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New()
		c.Set("correlation_id", id.String())
		c.Request = c.Request.WithContext(bus.WithCorrelationID(c.Request.Context(), id))
		c.Next()
	}
}

// corsMiddleware is permissive enough for a local browser client driving a
// single-process engine with no authentication layer.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
	})
}
