package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MessageType distinguishes direct messages from the other kinds the
// platform stores in the same collection.
type MessageType string

const (
	MessageTypeDirect MessageType = "direct"
	MessageTypeGlobal MessageType = "global"
)

// Message is an immutable unit of chat content
type Message struct {
	ID          string      `json:"_id"`
	Msg         string      `json:"msg"`
	MsgFrom     string      `json:"msgFrom"`
	MsgDateTime time.Time   `json:"msgDateTime"`
	Type        MessageType `json:"type,omitempty"`
}

// MessageInput carries the caller-supplied fields of a new message.
// A zero MsgDateTime means "now".
type MessageInput struct {
	Msg         string
	MsgFrom     string
	MsgDateTime time.Time
	Type        MessageType
}

// Validate checks the message invariants shared by every creation path.
func (in MessageInput) Validate() error {
	if strings.TrimSpace(in.Msg) == "" {
		return fmt.Errorf("%w: message text is empty", ErrInvalidInput)
	}
	if !IsValidIdentifier(in.MsgFrom) {
		return fmt.Errorf("%w: invalid sender %q", ErrInvalidInput, in.MsgFrom)
	}
	return nil
}

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	CreateMany(ctx context.Context, messages []*Message) error
	// GetByIDs returns the messages in the order of ids, skipping ids that
	// do not resolve.
	GetByIDs(ctx context.Context, ids []string) ([]*Message, error)
}
