package router

import (
	"net/http"
	"strings"

	"chat-assistant/backend/internal/api"
	"chat-assistant/backend/pkg/config"
	"chat-assistant/backend/pkg/di"
	"chat-assistant/backend/pkg/errors"
	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	rateLimiter *middleware.RateLimiter
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.Warn("Invalid trusted proxies, trusting none", "error", err.Error())
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestIDMiddleware())
	// The logger goes first among the rest so every request is captured
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(errors.ErrorHandler())
	if cfg.Observability.MetricsEnabled {
		engine.Use(middleware.Metrics())
	}
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))
	engine.Use(bodyLimit(cfg.Security.MaxBodySize))

	opts := middleware.DefaultRateLimiterOptions()
	opts.Limit = rate.Limit(cfg.Security.RateLimit)
	opts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, opts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		rateLimiter: rateLimiter,
	}
}

// SetupRoutes registers all application routes. Request validation must be
// installed before this call to apply to them.
func (r *Router) SetupRoutes() {
	r.AddOpenAPIValidation(r.Config.OpenAPI.SchemaPath)

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService)

	authHandler := api.NewAuthHandler(r.Container.AuthService)
	messageController := api.NewMessageController(r.Container.MessageService, r.Container.AuthService)

	r.setupHealthRoutes()

	if r.Config.Observability.MetricsEnabled {
		r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	apiGroup := r.Engine.Group("/api")
	authHandler.RegisterRoutes(apiGroup, jwtAuth)
	messageController.RegisterRoutes(apiGroup, jwtAuth, middleware.RequireRole(jwt.RoleUser))

	r.Engine.GET("/ws", jwtAuth, api.StreamHandler(r.Container.Hub))
}

// Close stops the router's background workers
func (r *Router) Close() {
	r.rateLimiter.Close()
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := origins[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, X-RateLimit-Limit")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
