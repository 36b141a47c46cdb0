package api

import (
	"errors"
	"net/http"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/internal/service"
	apperrors "chat-assistant/backend/pkg/errors"
	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes mounts the /auth endpoints on group
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup, auth gin.HandlerFunc) {
	routes := group.Group("/auth")
	{
		routes.POST("/register", h.Register)
		routes.POST("/login", h.Login)
		routes.GET("/me", auth, h.Me)
		routes.POST("/logout", auth, h.Logout)
		routes.GET("/logout", auth, h.Logout)
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError(err))
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.Error(apperrors.NewConflictError("USER_EXISTS", "User with this email already exists"))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, user.ToResponse())
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError(err))
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Error(apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid credentials."))
			return
		}
		c.Error(err)
		return
	}

	logger.FromGin(c).Info("User logged in successfully", "user_id", user.ID)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.service)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user.ToCurrentUser())
}

// Logout revokes the bearer token used for this request
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// currentUser loads the account behind the request's token. It records an
// error on c and returns false when there is none.
func currentUser(c *gin.Context, auth *service.AuthService) (*models.User, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return nil, false
	}

	user, err := auth.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.Error(apperrors.NewUnauthorizedError("USER_NOT_FOUND", "The account for this token no longer exists"))
			return nil, false
		}
		c.Error(err)
		return nil, false
	}

	return user, true
}
