package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/internal/repository"
	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"

	"gorm.io/datatypes"
)

// DefaultBotEmailDomain is used when Deps.BotEmailDomain is empty
const DefaultBotEmailDomain = "local.io"

// ErrBotEmailTaken means a non-bot account holds the plugin's bot address
var ErrBotEmailTaken = errors.New("bot email belongs to a non-bot account")

// Deps are the collaborators shared by all plugins
type Deps struct {
	Users          repository.UserRepository
	Messages       repository.MessageRepository
	Logger         *logger.Logger
	BotEmailDomain string
}

// Responder is the common base of the bundled plugins. It owns the plugin's
// bot account and stores replies on its behalf.
type Responder struct {
	name     string
	users    repository.UserRepository
	messages repository.MessageRepository
	logger   *logger.Logger
	domain   string

	mu      sync.Mutex
	botUser *models.User
}

// NewResponder creates a responder for the plugin called name, logging to
// the chatbot_<channel> channel.
func NewResponder(name, channel string, deps Deps) *Responder {
	log := deps.Logger
	if log == nil {
		log = logger.GetGlobal()
	}
	domain := deps.BotEmailDomain
	if domain == "" {
		domain = DefaultBotEmailDomain
	}

	return &Responder{
		name:     name,
		users:    deps.Users,
		messages: deps.Messages,
		logger:   log.Channel("chatbot_" + channel),
		domain:   domain,
	}
}

// Name returns the plugin name
func (r *Responder) Name() string {
	return r.name
}

// Supports accepts any message that has an owner
func (r *Responder) Supports(msg *models.Message) bool {
	return msg != nil && (msg.UserID != 0 || msg.User != nil)
}

// BotEmail is the address of the plugin's bot account
func (r *Responder) BotEmail() string {
	return fmt.Sprintf("bot+%s@%s", r.name, r.domain)
}

// BotUser loads the plugin's bot account, creating it on first use
func (r *Responder) BotUser(ctx context.Context) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.botUser != nil {
		return r.botUser, nil
	}

	candidate := &models.User{
		Email: r.BotEmail(),
		Name:  DisplayName(r.name),
		Roles: datatypes.JSONSlice[string]{jwt.RoleBot},
	}

	user, err := r.users.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("resolve bot user %s: %w", candidate.Email, err)
	}
	if !user.IsBot() {
		return nil, fmt.Errorf("resolve bot user %s: %w", candidate.Email, ErrBotEmailTaken)
	}

	if user == candidate {
		r.logger.Info("Created new bot user",
			"plugin", r.name,
			"bot_email", candidate.Email,
			"bot_name", candidate.Name,
		)
	}

	r.botUser = user
	return user, nil
}

// Reply stores content as the bot's answer to original
func (r *Responder) Reply(ctx context.Context, original *models.Message, content string) (*models.Message, error) {
	bot, err := r.BotUser(ctx)
	if err != nil {
		return nil, err
	}

	originalID := original.ID
	reply := &models.Message{
		Content:     content,
		Status:      models.StatusReceived,
		UserID:      bot.ID,
		InReplyToID: &originalID,
	}

	if err := r.messages.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("store bot reply: %w", err)
	}
	reply.User = bot

	r.logger.Info("Chatbot generated response",
		"plugin", r.name,
		"bot_user_id", bot.ID,
		"original_message_id", original.ID,
		"response_message_id", reply.ID,
		"original_content", original.Content,
		"response_content", content,
	)

	return reply, nil
}

// Normalize lowercases and trims message content for keyword matching
func Normalize(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// ContainsKeyword reports whether content contains any of keywords,
// ignoring case.
func ContainsKeyword(content string, keywords []string) bool {
	normalized := Normalize(content)
	for _, kw := range keywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// DisplayName turns a plugin name such as date_time_chatbot into
// "Date Time Chatbot".
func DisplayName(name string) string {
	runes := []rune(strings.ReplaceAll(name, "_", " "))
	start := true
	for i, r := range runes {
		if start {
			runes[i] = unicode.ToUpper(r)
		}
		start = unicode.IsSpace(r)
	}
	return string(runes)
}
