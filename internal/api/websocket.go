package api

import (
	"chat-assistant/backend/internal/ws"
	apperrors "chat-assistant/backend/pkg/errors"
	"chat-assistant/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// StreamHandler upgrades authenticated requests to a websocket that receives
// the caller's message events.
func StreamHandler(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.ClaimsFromContext(c)
		if !ok {
			c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			return
		}

		ws.ServeWs(hub, c, claims.UserID)
	}
}
