package mongo

import (
	"context"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/repository/document"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MessageRepository implements domain.MessageRepository for MongoDB
type MessageRepository struct {
	coll *mongo.Collection
}

// NewMessageRepository creates a new MongoDB message repository
func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(messagesCollection)}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	defer observability.ObserveStore(backend, "create_message", time.Now())

	doc, err := document.NewMessage(message, now())
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// CreateMany inserts messages in one ordered batch
func (r *MessageRepository) CreateMany(ctx context.Context, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	defer observability.ObserveStore(backend, "create_messages", time.Now())

	ts := now()
	docs := make([]any, 0, len(messages))
	for _, message := range messages {
		doc, err := document.NewMessage(message, ts)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		docs = append(docs, doc)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create messages: %w", err)
	}
	return nil
}

// GetByIDs retrieves messages in the order of ids, skipping unknown and
// malformed ids
func (r *MessageRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}
	defer observability.ObserveStore(backend, "get_messages", time.Now())

	oids := lo.FilterMap(ids, func(id string, _ int) (any, bool) {
		oid, ok := document.ParseID(id)
		return oid, ok
	})

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	var docs []document.Message
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	byID := lo.SliceToMap(docs, func(doc document.Message) (string, document.Message) {
		return doc.ID.Hex(), doc
	})
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			messages = append(messages, doc.ToDomain())
		}
	}
	return messages, nil
}
