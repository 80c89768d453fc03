package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"

	"github.com/lib/pq"
)

const chatColumns = `id, participants, messages, created_at, updated_at`

// ChatRepository implements domain.ChatRepository for PostgreSQL
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new PostgreSQL chat repository
func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	chat := &domain.Chat{}
	err := row.Scan(
		&chat.ID,
		pq.Array(&chat.Participants),
		pq.Array(&chat.Messages),
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		chat.Messages = []string{}
	}
	return chat, nil
}

// Create inserts a new chat
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	defer observability.ObserveStore("postgres", "create_chat", time.Now())

	if chat.ID == "" {
		chat.ID = domain.NewID()
	}
	if chat.Messages == nil {
		chat.Messages = []string{}
	}

	query := `
		INSERT INTO chats (id, participants, messages)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		chat.ID,
		pq.Array(chat.Participants),
		pq.Array(chat.Messages),
	).Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetByID retrieves a chat by ID
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	defer observability.ObserveStore("postgres", "get_chat", time.Now())

	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	return scanChat(r.db.QueryRowContext(ctx, query, id))
}

// FindByParticipants retrieves chats containing every given participant
func (r *ChatRepository) FindByParticipants(ctx context.Context, participants []string) ([]*domain.Chat, error) {
	defer observability.ObserveStore("postgres", "find_chats", time.Now())

	query := `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE participants @> $1::text[]
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(participants))
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*domain.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// AppendMessage pushes messageID onto the chat's message list in one statement
func (r *ChatRepository) AppendMessage(ctx context.Context, chatID, messageID string) (*domain.Chat, error) {
	defer observability.ObserveStore("postgres", "append_message", time.Now())

	query := `
		UPDATE chats
		SET messages = array_append(messages, $2::text), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + chatColumns
	return scanChat(r.db.QueryRowContext(ctx, query, chatID, messageID))
}

// AddParticipant adds participant to the chat unless already present
func (r *ChatRepository) AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error) {
	defer observability.ObserveStore("postgres", "add_participant", time.Now())

	query := `
		UPDATE chats
		SET participants = CASE
				WHEN $2::text = ANY(participants) THEN participants
				ELSE array_append(participants, $2::text)
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + chatColumns
	return scanChat(r.db.QueryRowContext(ctx, query, chatID, participant))
}

// Ping checks connectivity
func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
