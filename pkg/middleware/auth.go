package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	apperrors "chat-assistant/backend/pkg/errors"
	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by JWTAuthMiddleware
const (
	ClaimsKey = "claims"
	UserIDKey = "userId"
	TokenKey  = "token"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.JWTClaims, error)
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context.
// Websocket upgrades may pass the token as the "token" query parameter since
// browsers cannot set headers on them.
func JWTAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(c.Request.Context(), token)
		if err != nil {
			log := logger.FromGin(c)
			code, msg := "INVALID_TOKEN", "Invalid or expired token"
			switch {
			case errors.Is(err, jwt.ErrRevokedToken):
				code, msg = "TOKEN_REVOKED", "Token has been revoked"
			case errors.Is(err, jwt.ErrExpiredToken):
				code, msg = "TOKEN_EXPIRED", "Token has expired"
			}
			log.Warn("Invalid JWT token", "error", err.Error())
			c.Error(apperrors.NewUnauthorizedError(code, msg))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(TokenKey, token)
		c.Set(logger.ContextKey, logger.FromGin(c).WithUserID(strconv.FormatUint(uint64(claims.UserID), 10)))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}

	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}

	return ""
}

// ClaimsFromContext returns the claims stored by JWTAuthMiddleware
func ClaimsFromContext(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}

// RequireRole returns a middleware that requires the user to have a specific role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get(ClaimsKey)
		if !exists {
			c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		jwtClaims, ok := claims.(*jwt.JWTClaims)
		if !ok {
			c.Error(apperrors.NewInternalServerError("INVALID_CLAIMS", "Invalid JWT claims format"))
			c.Abort()
			return
		}

		if !jwtClaims.HasRole(role) {
			c.Error(apperrors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}
