package router

import (
	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	healthHandler := func(c *gin.Context) {
		body, code := r.Container.Health.Report(c.Request.Context())
		body["websocket"] = gin.H{"active_connections": r.Container.Hub.TotalClients()}
		c.JSON(code, body)
	}

	// Both paths are served for load balancers configured either way
	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)
}
