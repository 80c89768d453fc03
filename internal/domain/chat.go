package domain

import (
	"context"
	"errors"
	"time"
)

var ErrChatNotFound = errors.New("chat not found")

// Chat is a participant set plus an ordered list of message references.
type Chat struct {
	ID           string    `json:"_id"`
	Participants []string  `json:"participants"`
	Messages     []string  `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ChatRepository defines the interface for chat data access.
// AppendMessage and AddParticipant must be atomic single-record updates in
// the backing store; the service never does read-modify-write itself.
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	GetByID(ctx context.Context, id string) (*Chat, error)
	// FindByParticipants returns chats whose participants contain all of the
	// given identifiers.
	FindByParticipants(ctx context.Context, participants []string) ([]*Chat, error)
	AppendMessage(ctx context.Context, chatID, messageID string) (*Chat, error)
	AddParticipant(ctx context.Context, chatID, participant string) (*Chat, error)
	Ping(ctx context.Context) error
}

// Sender is the display data of a message author.
type Sender struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// PopulatedMessage is a Message with its sender resolved when known.
type PopulatedMessage struct {
	Message
	Sender *Sender `json:"sender,omitempty"`
}

// PopulatedChat is a read-only projection of a Chat with message references
// resolved. It is rebuilt on every fetch and never stored.
type PopulatedChat struct {
	ID           string              `json:"_id"`
	Participants []string            `json:"participants"`
	Messages     []*PopulatedMessage `json:"messages"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// HasParticipant reports whether id is one of the chat's participants.
func (c *PopulatedChat) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

type ChatUpdateType string

const (
	ChatUpdateCreated    ChatUpdateType = "created"
	ChatUpdateNewMessage ChatUpdateType = "newMessage"
)

const ChatUpdateEvent = "chatUpdate"

// ChatUpdate is the payload of the chatUpdate realtime event.
type ChatUpdate struct {
	Chat *PopulatedChat `json:"chat"`
	Type ChatUpdateType `json:"type"`
}
