package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/transport/push"
)

// NewRouter wires the External Interface Layer's route grouping
// convention: health outside the group, everything else under /api.
func NewRouter(h *Handler, hub *push.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(attachCorrelationID())
	r.Use(corsMiddleware())

	r.GET("/healthz", h.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/upload", h.Upload)
		api.POST("/start_conversion", h.StartConversion)
		api.POST("/chat", h.Chat)
		api.GET("/status", h.Status)
		api.POST("/decide_improvement", h.DecideImprovement)
		api.POST("/decide_retry", h.DecideRetry)
		api.POST("/reset", h.Reset)
		api.GET("/download/:kind", h.Download)
		api.GET("/stream", h.Stream(hub))
	}

	return r
}
