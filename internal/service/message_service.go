package service

import (
	"context"
	"errors"
	"fmt"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/internal/repository"
	"chat-assistant/backend/internal/ws"
	"chat-assistant/backend/pkg/logger"
)

var (
	ErrMessageNotFound         = errors.New("message not found")
	ErrInvalidStatusTransition = errors.New("message status transition not allowed")
)

// Dispatcher hands a stored message to the chatbot plugins
type Dispatcher interface {
	ProcessMessage(ctx context.Context, msg *models.Message) int
}

// Publisher pushes events to a user's websocket connections
type Publisher interface {
	Publish(userID uint, event ws.Event)
}

// MessageService handles message persistence and chatbot dispatch
type MessageService struct {
	messages repository.MessageRepository
	chatbot  Dispatcher
	events   Publisher
	logger   *logger.Logger
}

// NewMessageService creates a new message service. chatbot and events may be nil.
func NewMessageService(messages repository.MessageRepository, chatbot Dispatcher, events Publisher, log *logger.Logger) *MessageService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &MessageService{
		messages: messages,
		chatbot:  chatbot,
		events:   events,
		logger:   log,
	}
}

// ListUserMessages returns the user's messages, newest first
func (s *MessageService) ListUserMessages(ctx context.Context, user *models.User) ([]models.Message, error) {
	return s.messages.FindByUser(ctx, user.ID)
}

// ListAllMessages returns every message, newest first
func (s *MessageService) ListAllMessages(ctx context.Context) ([]models.Message, error) {
	return s.messages.FindAllOrderedByID(ctx)
}

// CreateMessage stores the message as sent, lets the chatbot answer it and
// returns it with its replies.
func (s *MessageService) CreateMessage(ctx context.Context, req *models.CreateMessageRequest, user *models.User) (*models.Message, error) {
	msg := &models.Message{
		Content: req.Message,
		Status:  models.StatusSent,
		UserID:  user.ID,
		User:    user,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	if s.chatbot != nil {
		n := s.chatbot.ProcessMessage(ctx, msg)
		s.logger.Debug("Chatbot dispatch finished", "message_id", msg.ID, "processed", n)
	}

	reloaded, err := s.messages.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}

	s.publish(user.ID, ws.EventMessageCreated, reloaded)
	return reloaded, nil
}

// UpdateStatus moves one of the user's messages to status. Messages owned by
// someone else are reported as missing.
func (s *MessageService) UpdateStatus(ctx context.Context, user *models.User, id uint, status models.MessageStatus) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if msg.UserID != user.ID {
		return nil, ErrMessageNotFound
	}

	if !msg.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, msg.Status, status)
	}

	if msg.Status != status {
		msg.Status = status
		if err := s.messages.Save(ctx, msg); err != nil {
			return nil, fmt.Errorf("save message: %w", err)
		}
		s.publish(user.ID, ws.EventMessageStatus, msg)
	}

	return msg, nil
}

func (s *MessageService) publish(userID uint, eventType string, msg *models.Message) {
	if s.events == nil {
		return
	}
	s.events.Publish(userID, ws.Event{Type: eventType, Content: msg.ToResponse()})
}
