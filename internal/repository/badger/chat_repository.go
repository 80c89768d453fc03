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
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// ChatRepository implements domain.ChatRepository on Badger
type ChatRepository struct {
	db *badger.DB
}

// NewChatRepository creates a new Badger chat repository
func NewChatRepository(db *badger.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create stores a new chat
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	defer observability.ObserveStore(backend, "create_chat", time.Now())

	doc, err := document.NewChat(chat, now())
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	err = updateWithRetry(ctx, r.db, func(txn *badger.Txn) error {
		return setDoc(txn, chatKey(chat.ID), doc)
	})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetByID retrieves a chat by ID
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "get_chat", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc document.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, chatKey(id), &doc)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return doc.ToDomain(), nil
}

// FindByParticipants scans all chats and keeps those containing every given
// participant. Results come back in key order, which for ObjectIDs is
// creation order.
func (r *ChatRepository) FindByParticipants(ctx context.Context, participants []string) ([]*domain.Chat, error) {
	defer observability.ObserveStore(backend, "find_chats", time.Now())

	chats := make([]*domain.Chat, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(chatPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var doc document.Chat
			if err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			if lo.Every(doc.Participants, participants) {
				chats = append(chats, doc.ToDomain())
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	return chats, nil
}

// AppendMessage pushes messageID onto the chat's message list
func (r *ChatRepository) AppendMessage(ctx context.Context, chatID, messageID string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "append_message", time.Now())

	oid, ok := document.ParseID(messageID)
	if !ok {
		return nil, fmt.Errorf("failed to append message: malformed id %q", messageID)
	}
	return r.update(ctx, chatID, func(doc *document.Chat) {
		doc.Messages = append(doc.Messages, oid)
	})
}

// AddParticipant adds participant to the chat unless already present
func (r *ChatRepository) AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error) {
	defer observability.ObserveStore(backend, "add_participant", time.Now())

	return r.update(ctx, chatID, func(doc *document.Chat) {
		if !lo.Contains(doc.Participants, participant) {
			doc.Participants = append(doc.Participants, participant)
		}
	})
}

// update applies mutate to the stored chat inside one transaction.
func (r *ChatRepository) update(ctx context.Context, chatID string, mutate func(doc *document.Chat)) (*domain.Chat, error) {
	var doc document.Chat
	err := updateWithRetry(ctx, r.db, func(txn *badger.Txn) error {
		doc = document.Chat{}
		if err := getDoc(txn, chatKey(chatID), &doc); err != nil {
			return err
		}
		mutate(&doc)
		doc.UpdatedAt = now()
		return setDoc(txn, chatKey(chatID), &doc)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update chat: %w", err)
	}
	return doc.ToDomain(), nil
}

// Ping reports whether the database is open
func (r *ChatRepository) Ping(ctx context.Context) error {
	if r.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return ctx.Err()
}
