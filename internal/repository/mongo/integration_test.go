//go:build integration
// +build integration

package mongo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fakeso-chat/internal/config"
	"fakeso-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	db, err := config.NewMongoDatabase(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "fakeso_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(ctx) })

	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestMongo_ChatLifecycle(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	chats := NewChatRepository(db)
	messages := NewMessageRepository(db)

	chat := &domain.Chat{Participants: []string{"alice", "bob"}}
	require.NoError(t, chats.Create(ctx, chat))

	msg := &domain.Message{Msg: "hi", MsgFrom: "alice", Type: domain.MessageTypeDirect}
	require.NoError(t, messages.Create(ctx, msg))

	updated, err := chats.AppendMessage(ctx, chat.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{msg.ID}, updated.Messages)

	updated, err = chats.AddParticipant(ctx, chat.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, updated.Participants)

	found, err := chats.FindByParticipants(ctx, []string{"bob", "alice"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	loaded, err := messages.GetByIDs(ctx, updated.Messages)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "hi", loaded[0].Msg)
}

func TestMongo_ConcurrentAppends(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	chats := NewChatRepository(db)

	chat := &domain.Chat{Participants: []string{"alice", "bob"}}
	require.NoError(t, chats.Create(ctx, chat))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := chats.AppendMessage(ctx, chat.ID, domain.NewID())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, writers)
}

func TestMongo_UniqueUsername(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	require.NoError(t, users.Create(ctx, &domain.User{Username: "alice"}))
	assert.ErrorIs(t, users.Create(ctx, &domain.User{Username: "alice"}), domain.ErrUsernameExists)
}
