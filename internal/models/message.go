package models

import (
	"sort"
	"time"
)

// MessageStatus is the delivery state of a message
type MessageStatus string

const (
	StatusPending  MessageStatus = "pending"
	StatusSent     MessageStatus = "sent"
	StatusReceived MessageStatus = "received"
	StatusFailed   MessageStatus = "failed"
)

// Valid reports whether s is a known status
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusReceived, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a message in status s may move to next.
// Statuses only move forward: pending, sent, received. Failed can be reached
// from pending or sent. Setting the current status again is a no-op.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}

	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusReceived || next == StatusFailed
	case StatusSent:
		return next == StatusReceived || next == StatusFailed
	default:
		return false
	}
}

// Message represents a chat message. Replies point at the message they answer
// through InReplyToID.
type Message struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Content     string        `json:"message" gorm:"type:text;not null"`
	Status      MessageStatus `json:"status" gorm:"size:20;not null"`
	UserID      uint          `json:"user_id" gorm:"not null;index"`
	User        *User         `json:"-"`
	InReplyToID *uint         `json:"in_reply_to" gorm:"index"`
	Replies     []Message     `json:"-" gorm:"foreignKey:InReplyToID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CreateMessageRequest is the body of POST /api/messages
type CreateMessageRequest struct {
	Message string `json:"message" binding:"required,notblank,min=1,max=5000"`
}

// UpdateStatusRequest is the body of PATCH /api/messages/:id/status
type UpdateStatusRequest struct {
	Status MessageStatus `json:"status" binding:"required,oneof=sent received pending failed"`
}

// MessageResponse is the JSON shape of a message
type MessageResponse struct {
	ID        uint              `json:"id"`
	Message   string            `json:"message"`
	User      *string           `json:"user"`
	Status    MessageStatus     `json:"status"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	InReplyTo *uint             `json:"in_reply_to"`
	Replies   []MessageResponse `json:"replies"`
}

// ToResponse converts a Message model to a MessageResponse. Replies are
// rendered newest first.
func (m *Message) ToResponse() MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		Message:   m.Content,
		Status:    m.Status,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
		InReplyTo: m.InReplyToID,
		Replies:   make([]MessageResponse, 0, len(m.Replies)),
	}

	if m.User != nil {
		name := m.User.Name
		resp.User = &name
	}

	replies := make([]Message, len(m.Replies))
	copy(replies, m.Replies)
	sort.SliceStable(replies, func(i, j int) bool { return replies[i].ID > replies[j].ID })

	for i := range replies {
		resp.Replies = append(resp.Replies, replies[i].ToResponse())
	}

	return resp
}

// ToResponses converts a slice of messages
func ToResponses(messages []Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].ToResponse())
	}
	return out
}
