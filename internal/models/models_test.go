package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestGetRolesAlwaysIncludesUserRole(t *testing.T) {
	u := &User{}
	assert.Equal(t, []string{"ROLE_USER"}, u.GetRoles())

	u.Roles = datatypes.JSONSlice[string]{"ROLE_ADMIN", "ROLE_USER", "ROLE_ADMIN"}
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, u.GetRoles())
	assert.True(t, u.HasRole("ROLE_ADMIN"))
	assert.False(t, u.IsBot())
}

func TestBotUser(t *testing.T) {
	u := &User{Roles: datatypes.JSONSlice[string]{"ROLE_BOT"}}
	assert.True(t, u.IsBot())
	assert.Equal(t, []string{"ROLE_BOT", "ROLE_USER"}, u.GetRoles())
}

func TestBeforeCreateHashesPassword(t *testing.T) {
	u := &User{Password: "SecurePass123!"}
	require.NoError(t, u.BeforeCreate(nil))

	assert.NotEqual(t, "SecurePass123!", u.Password)
	assert.True(t, CheckPasswordHash("SecurePass123!", u.Password))
	assert.False(t, CheckPasswordHash("wrong", u.Password))
	assert.NotNil(t, u.Roles)
}

func TestBeforeCreateKeepsEmptyPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))

	assert.Empty(t, u.Password)
	assert.False(t, CheckPasswordHash("", u.Password))
}

func TestUserResponseHidesPassword(t *testing.T) {
	u := &User{ID: 1, Email: "a@b.io", Name: "A", Password: "hash"}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")

	me := u.ToCurrentUser()
	assert.Equal(t, "a@b.io", me.Email)
	assert.Equal(t, []string{"ROLE_USER"}, me.Roles)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to MessageStatus
		want     bool
	}{
		{StatusPending, StatusSent, true},
		{StatusPending, StatusReceived, true},
		{StatusPending, StatusFailed, true},
		{StatusSent, StatusReceived, true},
		{StatusSent, StatusFailed, true},
		{StatusSent, StatusPending, false},
		{StatusReceived, StatusSent, false},
		{StatusReceived, StatusFailed, false},
		{StatusFailed, StatusSent, false},
		{StatusSent, StatusSent, true},
		{StatusSent, MessageStatus("lost"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMessageToResponse(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	parent := uint(1)

	m := Message{
		ID:        1,
		Content:   "hello",
		Status:    StatusSent,
		User:      &User{Name: "John"},
		CreatedAt: created,
		UpdatedAt: created,
		Replies: []Message{
			{ID: 2, Content: "first", Status: StatusReceived, InReplyToID: &parent, User: &User{Name: "Generic Chatbot"}},
			{ID: 3, Content: "second", Status: StatusReceived, InReplyToID: &parent},
		},
	}

	resp := m.ToResponse()

	assert.Equal(t, "hello", resp.Message)
	require.NotNil(t, resp.User)
	assert.Equal(t, "John", *resp.User)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.CreatedAt)
	assert.Nil(t, resp.InReplyTo)
	require.Len(t, resp.Replies, 2)
	assert.Equal(t, uint(3), resp.Replies[0].ID)
	assert.Nil(t, resp.Replies[0].User)
	assert.Equal(t, uint(2), resp.Replies[1].ID)
	assert.Equal(t, parent, *resp.Replies[1].InReplyTo)
	assert.NotNil(t, resp.Replies[1].Replies)

	// original order is left alone
	assert.Equal(t, uint(2), m.Replies[0].ID)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"in_reply_to":null`)
	assert.Contains(t, string(data), `"replies":[{`)
}
