package chatbot

import (
	"context"
	"time"

	"chat-assistant/backend/internal/models"
)

const (
	DateTimePluginName     = "date_time_chatbot"
	dateTimePluginPriority = 20
)

var (
	timeKeywords = []string{"time", "what time", "current time", "clock"}
	dateKeywords = []string{"date", "what date", "today", "current date"}
)

// DateTimePlugin answers questions about the current time or date
type DateTimePlugin struct {
	*Responder
	now      func() time.Time
	location *time.Location
}

// NewDateTimePlugin creates the plugin. A nil location means UTC.
func NewDateTimePlugin(deps Deps, location *time.Location) *DateTimePlugin {
	if location == nil {
		location = time.UTC
	}
	return &DateTimePlugin{
		Responder: NewResponder(DateTimePluginName, "date_time", deps),
		now:       time.Now,
		location:  location,
	}
}

// WithClock replaces the time source
func (p *DateTimePlugin) WithClock(now func() time.Time) *DateTimePlugin {
	p.now = now
	return p
}

func (p *DateTimePlugin) Priority() int {
	return dateTimePluginPriority
}

func (p *DateTimePlugin) Supports(msg *models.Message) bool {
	if !p.Responder.Supports(msg) {
		return false
	}

	keywords := append(append([]string{}, timeKeywords...), dateKeywords...)
	return ContainsKeyword(msg.Content, keywords)
}

// Process replies with the time when a time keyword is present, otherwise
// with the date.
func (p *DateTimePlugin) Process(ctx context.Context, msg *models.Message) error {
	now := p.now().In(p.location)

	switch {
	case ContainsKeyword(msg.Content, timeKeywords):
		_, err := p.Reply(ctx, msg, "The current time is "+now.Format("15:04:05")+".")
		return err
	case ContainsKeyword(msg.Content, dateKeywords):
		_, err := p.Reply(ctx, msg, "Today is "+now.Format("Monday, January 2, 2006")+".")
		return err
	}

	return nil
}
