package document

import (
	"testing"
	"time"

	"fakeso-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewChat_AssignsIDAndTimestamps(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	chat := &domain.Chat{Participants: []string{"alice", "bob"}}

	doc, err := NewChat(chat, now)
	require.NoError(t, err)

	assert.True(t, domain.IsValidObjectID(chat.ID))
	assert.Equal(t, chat.ID, doc.ID.Hex())
	assert.Equal(t, now, chat.CreatedAt)
	assert.Equal(t, []string{}, chat.Messages)
}

func TestNewChat_RejectsMalformedMessageIDs(t *testing.T) {
	chat := &domain.Chat{Participants: []string{"alice"}, Messages: []string{"nope"}}

	_, err := NewChat(chat, time.Now())
	assert.Error(t, err)
}

func TestChat_BSONPreservesMessageOrder(t *testing.T) {
	ids := []string{domain.NewID(), domain.NewID(), domain.NewID()}
	chat := &domain.Chat{Participants: []string{"alice"}, Messages: []string{ids[2], ids[0], ids[1]}}

	doc, err := NewChat(chat, time.Now().UTC())
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded Chat
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, decoded.ToDomain().Messages)
}

func TestNewMessage_DefaultsTimestamp(t *testing.T) {
	now := time.Now().UTC()
	msg := &domain.Message{Msg: "hi", MsgFrom: "alice", Type: domain.MessageTypeDirect}

	doc, err := NewMessage(msg, now)
	require.NoError(t, err)

	assert.Equal(t, now, msg.MsgDateTime)
	assert.Equal(t, "direct", doc.Type)
	assert.Equal(t, msg.ID, doc.ToDomain().ID)
}

func TestNewMessage_KeepsExplicitTimestamp(t *testing.T) {
	sent := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := &domain.Message{Msg: "hi", MsgFrom: "alice", MsgDateTime: sent}

	doc, err := NewMessage(msg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, sent, doc.MsgDateTime)
}

func TestNewUser(t *testing.T) {
	user := &domain.User{Username: "alice"}
	doc, err := NewUser(user, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.ToDomain().Username)
	assert.Equal(t, user.ID, doc.ID.Hex())
}
