package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"

	"github.com/lib/pq"
)

const insertMessageQuery = `
	INSERT INTO messages (id, msg, msg_from, msg_date_time, type)
	VALUES ($1, $2, $3, $4, $5)
`

// MessageRepository implements domain.MessageRepository for PostgreSQL
type MessageRepository struct {
	db *sql.DB
	tx *TxManager
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db, tx: NewTxManager(db)}
}

func prepareMessage(message *domain.Message) {
	if message.ID == "" {
		message.ID = domain.NewID()
	}
	if message.MsgDateTime.IsZero() {
		message.MsgDateTime = time.Now().UTC()
	}
}

// Create inserts a new message into the database
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	defer observability.ObserveStore("postgres", "create_message", time.Now())

	prepareMessage(message)
	_, err := r.db.ExecContext(ctx, insertMessageQuery,
		message.ID,
		message.Msg,
		message.MsgFrom,
		message.MsgDateTime,
		string(message.Type),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// CreateMany inserts messages in a single transaction
func (r *MessageRepository) CreateMany(ctx context.Context, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	defer observability.ObserveStore("postgres", "create_messages", time.Now())

	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, message := range messages {
			prepareMessage(message)
			if _, err := tx.ExecContext(ctx, insertMessageQuery,
				message.ID,
				message.Msg,
				message.MsgFrom,
				message.MsgDateTime,
				string(message.Type),
			); err != nil {
				return fmt.Errorf("failed to create message: %w", err)
			}
		}
		return nil
	})
}

// GetByIDs retrieves messages in the order of ids, skipping unknown ids
func (r *MessageRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	if len(ids) == 0 {
		return []*domain.Message{}, nil
	}
	defer observability.ObserveStore("postgres", "get_messages", time.Now())

	query := `
		SELECT m.id, m.msg, m.msg_from, m.msg_date_time, m.type
		FROM unnest($1::text[]) WITH ORDINALITY AS ref(id, pos)
		JOIN messages m ON m.id = ref.id
		ORDER BY ref.pos
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, len(ids))
	for rows.Next() {
		msg := &domain.Message{}
		var msgType string
		if err := rows.Scan(&msg.ID, &msg.Msg, &msg.MsgFrom, &msg.MsgDateTime, &msgType); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Type = domain.MessageType(msgType)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
