package projection

import (
	"context"
	"encoding/json"
	"testing"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulate_ResolvesMessagesInOrder(t *testing.T) {
	alice := testutil.NewTestUser(testutil.WithUsername("alice"))
	bob := testutil.NewTestUser(testutil.WithUsername("bob"))
	messages := testutil.NewMockMessageRepository()
	chats := testutil.NewMockChatRepository()

	m1 := testutil.NewTestMessage(testutil.WithMsg("hi"), testutil.WithMsgFrom("alice"))
	m2 := testutil.NewTestMessage(testutil.WithMsg("hey"), testutil.WithMsgFrom(bob.ID))
	m3 := testutil.NewTestMessage(testutil.WithMsg("who?"), testutil.WithMsgFrom("stranger"))
	chat := testutil.SeedChat(chats, messages, testutil.NewTestChat(), m1, m2, m3)

	p := NewPopulator(messages, testutil.NewMockUserRepository(alice, bob))
	got, err := p.Populate(context.Background(), chat)
	require.NoError(t, err)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "hi", got.Messages[0].Msg)
	assert.Equal(t, &domain.Sender{ID: alice.ID, Username: "alice"}, got.Messages[0].Sender)
	assert.Equal(t, &domain.Sender{ID: bob.ID, Username: "bob"}, got.Messages[1].Sender)
	assert.Nil(t, got.Messages[2].Sender)
	assert.Equal(t, chat.Participants, got.Participants)
	assert.Equal(t, chat.ID, got.ID)
}

func TestPopulate_SkipsDanglingReferences(t *testing.T) {
	messages := testutil.NewMockMessageRepository()
	chats := testutil.NewMockChatRepository()
	m1 := testutil.NewTestMessage()
	chat := testutil.SeedChat(chats, messages, testutil.NewTestChat(), m1)
	chat.Messages = append(chat.Messages, domain.NewID())

	got, err := NewPopulator(messages, testutil.NewMockUserRepository()).Populate(context.Background(), chat)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestPopulate_MessageLoadFailure(t *testing.T) {
	messages := testutil.NewMockMessageRepository()
	messages.GetByIDsFunc = func(ctx context.Context, ids []string) ([]*domain.Message, error) {
		return nil, testutil.ErrMockStore
	}

	_, err := NewPopulator(messages, testutil.NewMockUserRepository()).Populate(context.Background(), testutil.NewTestChat())
	assert.ErrorIs(t, err, testutil.ErrMockStore)
}

func TestPopulate_SenderLookupFailureIsNotFatal(t *testing.T) {
	messages := testutil.NewMockMessageRepository()
	chats := testutil.NewMockChatRepository()
	chat := testutil.SeedChat(chats, messages, testutil.NewTestChat(), testutil.NewTestMessage())

	users := testutil.NewMockUserRepository()
	users.GetByUsernameFunc = func(ctx context.Context, username string) (*domain.User, error) {
		return nil, testutil.ErrMockStore
	}

	got, err := NewPopulator(messages, users).Populate(context.Background(), chat)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Nil(t, got.Messages[0].Sender)
}

func TestPopulate_JSONShape(t *testing.T) {
	messages := testutil.NewMockMessageRepository()
	chats := testutil.NewMockChatRepository()
	chat := testutil.SeedChat(chats, messages, testutil.NewTestChat(), testutil.NewTestMessage(testutil.WithMsg("hi")))

	got, err := NewPopulator(messages, testutil.NewMockUserRepository()).Populate(context.Background(), chat)
	require.NoError(t, err)

	raw, err := json.Marshal(got)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, chat.ID, decoded["_id"])
	assert.Contains(t, decoded, "createdAt")
	msgs := decoded["messages"].([]any)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "hi", first["msg"])
	assert.Equal(t, "direct", first["type"])
	assert.NotContains(t, first, "sender")
}

func TestPopulateAll_DropsFailures(t *testing.T) {
	messages := testutil.NewMockMessageRepository()
	good := testutil.NewTestChat()
	bad := testutil.NewTestChat(testutil.WithMessageIDs("poison"))
	messages.GetByIDsFunc = func(ctx context.Context, ids []string) ([]*domain.Message, error) {
		if len(ids) > 0 && ids[0] == "poison" {
			return nil, testutil.ErrMockStore
		}
		return []*domain.Message{}, nil
	}

	got := NewPopulator(messages, testutil.NewMockUserRepository()).PopulateAll(context.Background(), []*domain.Chat{bad, good})
	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)
	assert.NotNil(t, got[0].Messages)
}
