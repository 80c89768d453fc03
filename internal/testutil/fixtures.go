package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"fakeso-chat/internal/domain"
)

// Counter for generating unique usernames
var idCounter atomic.Int64

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{
		ID:       domain.NewID(),
		Username: fmt.Sprintf("testuser%d", idCounter.Add(1)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.User{ID: o.ID, Username: o.Username, CreatedAt: o.CreatedAt}
}

// WithUsername sets the username
func WithUsername(username string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Username = username
	}
}

// MessageOptions allows customizing message fixture creation
type MessageOptions struct {
	ID          string
	Msg         string
	MsgFrom     string
	MsgDateTime time.Time
	Type        domain.MessageType
}

// NewTestMessage creates a direct test message with sensible defaults
func NewTestMessage(opts ...func(*MessageOptions)) *domain.Message {
	o := &MessageOptions{
		ID:          domain.NewID(),
		Msg:         "Test message content",
		MsgFrom:     "alice",
		MsgDateTime: time.Now().UTC(),
		Type:        domain.MessageTypeDirect,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &domain.Message{
		ID:          o.ID,
		Msg:         o.Msg,
		MsgFrom:     o.MsgFrom,
		MsgDateTime: o.MsgDateTime,
		Type:        o.Type,
	}
}

// WithMsg sets the message text
func WithMsg(text string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Msg = text
	}
}

// WithMsgFrom sets the sender identifier
func WithMsgFrom(from string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.MsgFrom = from
	}
}

// ChatOptions allows customizing chat fixture creation
type ChatOptions struct {
	ID           string
	Participants []string
	Messages     []string
}

// NewTestChat creates a two-person test chat with no messages
func NewTestChat(opts ...func(*ChatOptions)) *domain.Chat {
	o := &ChatOptions{
		ID:           domain.NewID(),
		Participants: []string{"alice", "bob"},
		Messages:     []string{},
	}
	for _, opt := range opts {
		opt(o)
	}

	now := time.Now().UTC()
	return &domain.Chat{
		ID:           o.ID,
		Participants: o.Participants,
		Messages:     o.Messages,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// WithParticipants sets the chat participants
func WithParticipants(participants ...string) func(*ChatOptions) {
	return func(o *ChatOptions) {
		o.Participants = participants
	}
}

// WithMessageIDs sets the chat message references
func WithMessageIDs(ids ...string) func(*ChatOptions) {
	return func(o *ChatOptions) {
		o.Messages = ids
	}
}

// SeedChat stores chat in repo and its messages in messages, returning the chat
func SeedChat(chats *MockChatRepository, messages *MockMessageRepository, chat *domain.Chat, msgs ...*domain.Message) *domain.Chat {
	for _, msg := range msgs {
		messages.store(msg)
		chat.Messages = append(chat.Messages, msg.ID)
	}
	chats.mu.Lock()
	defer chats.mu.Unlock()
	if chats.Chats == nil {
		chats.Chats = make(map[string]*domain.Chat)
	}
	chats.Chats[chat.ID] = cloneChat(chat)
	chats.Order = append(chats.Order, chat.ID)
	return chat
}
