package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHATBOT_TIMEZONE", "")

	cfg := Load()

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "local.io", cfg.Chatbot.BotEmailDomain)
	assert.Equal(t, "UTC", cfg.Chatbot.Timezone)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.True(t, cfg.Chatbot.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRY", "30m")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:4200, https://chat.example.com")
	t.Setenv("CHATBOT_PLUGIN_TIMEOUT", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiry)
	assert.Equal(t, 2.5, cfg.Security.RateLimit)
	assert.Equal(t, []string{"http://localhost:4200", "https://chat.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Chatbot.PluginTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsProduction())
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("JWT_EXPIRY", "forever")

	cfg := Load()

	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
}

func TestDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.User = "chat"
	cfg.Database.Password = "secret"
	cfg.Database.Name = "chat"
	cfg.Database.SSLMode = "disable"
	cfg.Database.Timeout = 5 * time.Second

	assert.Equal(t, "host=db port=5432 user=chat password=secret dbname=chat sslmode=disable connect_timeout=5", cfg.DSN())
}
