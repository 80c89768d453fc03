package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/repository/document"

	"github.com/dgraph-io/badger/v4"
)

// MessageRepository implements domain.MessageRepository on Badger
type MessageRepository struct {
	db *badger.DB
}

// NewMessageRepository creates a new Badger message repository
func NewMessageRepository(db *badger.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a new message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	defer observability.ObserveStore(backend, "create_message", time.Now())
	return r.create(ctx, []*domain.Message{message})
}

// CreateMany stores all messages in one transaction
func (r *MessageRepository) CreateMany(ctx context.Context, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	defer observability.ObserveStore(backend, "create_messages", time.Now())
	return r.create(ctx, messages)
}

func (r *MessageRepository) create(ctx context.Context, messages []*domain.Message) error {
	ts := now()
	docs := make([]*document.Message, 0, len(messages))
	for _, message := range messages {
		doc, err := document.NewMessage(message, ts)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		docs = append(docs, doc)
	}

	err := updateWithRetry(ctx, r.db, func(txn *badger.Txn) error {
		for _, doc := range docs {
			if err := setDoc(txn, messageKey(doc.ID.Hex()), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByIDs retrieves messages in the order of ids, skipping unknown ids
func (r *MessageRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}
	defer observability.ObserveStore(backend, "get_messages", time.Now())

	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			var doc document.Message
			err := getDoc(txn, messageKey(id), &doc)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			messages = append(messages, doc.ToDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return messages, nil
}
