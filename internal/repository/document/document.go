// Package document holds the BSON shapes of chats, messages and users shared
// by the mongo and badger stores.
package document

import (
	"fmt"
	"time"

	"fakeso-chat/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Chat struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Participants []string             `bson:"participants"`
	Messages     []primitive.ObjectID `bson:"messages"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

type Message struct {
	ID          primitive.ObjectID `bson:"_id"`
	Msg         string             `bson:"msg"`
	MsgFrom     string             `bson:"msgFrom"`
	MsgDateTime time.Time          `bson:"msgDateTime"`
	Type        string             `bson:"type"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ParseID converts a hex id, reporting ok=false for malformed input.
func ParseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// ParseIDs converts hex ids in order.
func ParseIDs(ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, ok := ParseID(id)
		if !ok {
			return nil, fmt.Errorf("malformed id %q", id)
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	ids := make([]string, 0, len(oids))
	for _, oid := range oids {
		ids = append(ids, oid.Hex())
	}
	return ids
}

// NewChat builds the document for a new chat, assigning id and timestamps
// to chat when unset.
func NewChat(chat *domain.Chat, now time.Time) (*Chat, error) {
	if chat.ID == "" {
		chat.ID = domain.NewID()
	}
	oid, ok := ParseID(chat.ID)
	if !ok {
		return nil, fmt.Errorf("malformed chat id %q", chat.ID)
	}
	messages, err := ParseIDs(chat.Messages)
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		chat.Messages = []string{}
	}
	chat.CreatedAt = now
	chat.UpdatedAt = now

	return &Chat{
		ID:           oid,
		Participants: chat.Participants,
		Messages:     messages,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Chat) ToDomain() *domain.Chat {
	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}
	return &domain.Chat{
		ID:           c.ID.Hex(),
		Participants: participants,
		Messages:     hexIDs(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// NewMessage builds the document for a new message, assigning id and
// timestamp to message when unset.
func NewMessage(message *domain.Message, now time.Time) (*Message, error) {
	if message.ID == "" {
		message.ID = domain.NewID()
	}
	oid, ok := ParseID(message.ID)
	if !ok {
		return nil, fmt.Errorf("malformed message id %q", message.ID)
	}
	if message.MsgDateTime.IsZero() {
		message.MsgDateTime = now
	}
	return &Message{
		ID:          oid,
		Msg:         message.Msg,
		MsgFrom:     message.MsgFrom,
		MsgDateTime: message.MsgDateTime,
		Type:        string(message.Type),
	}, nil
}

func (m *Message) ToDomain() *domain.Message {
	return &domain.Message{
		ID:          m.ID.Hex(),
		Msg:         m.Msg,
		MsgFrom:     m.MsgFrom,
		MsgDateTime: m.MsgDateTime,
		Type:        domain.MessageType(m.Type),
	}
}

// NewUser builds the document for a new user, assigning id and creation
// time to user when unset.
func NewUser(user *domain.User, now time.Time) (*User, error) {
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	oid, ok := ParseID(user.ID)
	if !ok {
		return nil, fmt.Errorf("malformed user id %q", user.ID)
	}
	user.CreatedAt = now
	return &User{ID: oid, Username: user.Username, CreatedAt: now}, nil
}

func (u *User) ToDomain() *domain.User {
	return &domain.User{ID: u.ID.Hex(), Username: u.Username, CreatedAt: u.CreatedAt}
}
