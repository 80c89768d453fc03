package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/repository/document"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ChatRepository implements domain.ChatRepository for MongoDB
type ChatRepository struct {
	coll *mongo.Collection
}

// NewChatRepository creates a new MongoDB chat repository
func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{coll: db.Collection(chatsCollection)}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Create inserts a new chat
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	defer observability.ObserveStore(backend, "create_chat", time.Now())

	doc, err := document.NewChat(chat, now())
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetByID retrieves a chat by ID. A malformed id cannot match any chat.
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "get_chat", time.Now())

	oid, ok := document.ParseID(id)
	if !ok {
		return nil, domain.ErrChatNotFound
	}

	var doc document.Chat
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	return chatResult(&doc, err)
}

// FindByParticipants retrieves chats containing every given participant
func (r *ChatRepository) FindByParticipants(ctx context.Context, participants []string) ([]*domain.Chat, error) {
	defer observability.ObserveStore(backend, "find_chats", time.Now())

	filter := bson.M{"participants": bson.M{"$all": participants}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	var docs []document.Chat
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}

	chats := make([]*domain.Chat, 0, len(docs))
	for i := range docs {
		chats = append(chats, docs[i].ToDomain())
	}
	return chats, nil
}

// AppendMessage pushes messageID onto the chat's message list
func (r *ChatRepository) AppendMessage(ctx context.Context, chatID, messageID string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "append_message", time.Now())

	messageOID, ok := document.ParseID(messageID)
	if !ok {
		return nil, fmt.Errorf("failed to append message: malformed id %q", messageID)
	}
	return r.update(ctx, chatID, bson.M{
		"$push": bson.M{"messages": messageOID},
		"$set":  bson.M{"updatedAt": now()},
	})
}

// AddParticipant adds participant to the chat unless already present
func (r *ChatRepository) AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "add_participant", time.Now())

	return r.update(ctx, chatID, bson.M{
		"$addToSet": bson.M{"participants": participant},
		"$set":      bson.M{"updatedAt": now()},
	})
}

func (r *ChatRepository) update(ctx context.Context, chatID string, update bson.M) (*domain.Chat, error) {
	oid, ok := document.ParseID(chatID)
	if !ok {
		return nil, domain.ErrChatNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc document.Chat
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	return chatResult(&doc, err)
}

func chatResult(doc *document.Chat, err error) (*domain.Chat, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return doc.ToDomain(), nil
}

// Ping checks connectivity
func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
