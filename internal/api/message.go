package api

import (
	"errors"
	"net/http"
	"strconv"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/internal/service"
	apperrors "chat-assistant/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageController handles message-related API endpoints
type MessageController struct {
	messages *service.MessageService
	auth     *service.AuthService
}

// NewMessageController creates a new message controller
func NewMessageController(messages *service.MessageService, auth *service.AuthService) *MessageController {
	return &MessageController{messages: messages, auth: auth}
}

// RegisterRoutes registers the routes for the message controller
func (mc *MessageController) RegisterRoutes(group *gin.RouterGroup, auth ...gin.HandlerFunc) {
	routes := group.Group("/messages")
	routes.Use(auth...)
	{
		routes.GET("", mc.List)
		routes.POST("", mc.Create)
		routes.PATCH("/:id/status", mc.UpdateStatus)
	}
}

// List returns the caller's messages, newest first
func (mc *MessageController) List(c *gin.Context) {
	user, ok := currentUser(c, mc.auth)
	if !ok {
		return
	}

	messages, err := mc.messages.ListUserMessages(c.Request.Context(), user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.ToResponses(messages))
}

// Create stores a message and returns it with the chatbot replies
func (mc *MessageController) Create(c *gin.Context) {
	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError(err))
		return
	}

	user, ok := currentUser(c, mc.auth)
	if !ok {
		return
	}

	msg, err := mc.messages.CreateMessage(c.Request.Context(), &req, user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, msg.ToResponse())
}

// UpdateStatus changes the status of one of the caller's messages
func (mc *MessageController) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.Error(apperrors.NewBadRequestError("INVALID_ID", "Message id must be a positive integer"))
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError(err))
		return
	}

	user, ok := currentUser(c, mc.auth)
	if !ok {
		return
	}

	msg, err := mc.messages.UpdateStatus(c.Request.Context(), user, uint(id), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			c.Error(apperrors.NewNotFoundError("MESSAGE_NOT_FOUND", "Message not found"))
		case errors.Is(err, service.ErrInvalidStatusTransition):
			c.Error(apperrors.ConflictWithDetails("INVALID_STATUS_TRANSITION", "Message status transition not allowed", err.Error()))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, msg.ToResponse())
}
