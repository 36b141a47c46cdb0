package di

import (
	"context"
	"fmt"
	"time"

	"chat-assistant/backend/internal/chatbot"
	"chat-assistant/backend/internal/repository"
	"chat-assistant/backend/internal/service"
	"chat-assistant/backend/internal/ws"
	"chat-assistant/backend/pkg/cache"
	"chat-assistant/backend/pkg/config"
	"chat-assistant/backend/pkg/health"
	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Config         *config.Config
	Logger         *logger.Logger
	Cache          *cache.Cache
	Redis          *redis.RedisClient
	JWTService     *jwt.Service
	Users          repository.UserRepository
	Messages       repository.MessageRepository
	AuthService    *service.AuthService
	MessageService *service.MessageService
	Chatbot        *chatbot.Manager
	Hub            *ws.Hub
	Health         *health.Checker
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{
		DB:     db,
		Config: cfg,
		Logger: log,
		Cache:  cache.New(cache.Options{CleanupInterval: cfg.Cache.PurgeWindow}),
	}

	var revocations jwt.RevocationStore = jwt.NewMemoryRevocationStore(c.Cache)
	if cfg.Redis.Enabled {
		client, err := redis.NewRedisClient(redis.Options{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		c.Redis = client
		revocations = redis.NewTokenDenylist(client, revocations, log)
	}

	c.JWTService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry, revocations).WithIssuer(cfg.JWT.Issuer)

	c.Users = repository.NewGormUserRepository(db)
	c.Messages = repository.NewGormMessageRepository(db)
	c.AuthService = service.NewAuthService(c.Users, c.JWTService, log)
	c.Hub = ws.NewHub(log)

	var dispatcher service.Dispatcher
	if cfg.Chatbot.Enabled {
		manager, err := newChatbot(cfg, c.Users, c.Messages, log)
		if err != nil {
			return nil, err
		}
		c.Chatbot = manager
		dispatcher = manager
	} else {
		log.Info("Chatbot disabled")
	}

	c.MessageService = service.NewMessageService(c.Messages, dispatcher, c.Hub, log)

	c.Health = health.NewChecker(log, 15*time.Second, cfg.Server.Version)
	c.Health.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if c.Redis != nil {
		c.Health.RegisterRedisCheck(c.Redis.Ping)
	}

	return c, nil
}

func newChatbot(cfg *config.Config, users repository.UserRepository, messages repository.MessageRepository, log *logger.Logger) (*chatbot.Manager, error) {
	location, err := time.LoadLocation(cfg.Chatbot.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid chatbot timezone %q: %w", cfg.Chatbot.Timezone, err)
	}

	responses := chatbot.DefaultResponses
	if cfg.Chatbot.ResponsesFile != "" {
		responses, err = chatbot.LoadResponses(cfg.Chatbot.ResponsesFile)
		if err != nil {
			return nil, err
		}
	}

	deps := chatbot.Deps{
		Users:          users,
		Messages:       messages,
		Logger:         log,
		BotEmailDomain: cfg.Chatbot.BotEmailDomain,
	}

	return chatbot.NewManager(log, chatbot.BuiltinPlugins(deps, location, responses)...).
		WithTimeout(cfg.Chatbot.PluginTimeout), nil
}

// Close releases background resources held by the container
func (c *Container) Close() {
	c.Cache.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.LogError(err, "Failed to close redis client")
		}
	}
}
