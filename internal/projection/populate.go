// Package projection builds the read-side view of a chat: message references
// resolved to messages and senders resolved to display data.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"

	"github.com/samber/lo"
)

type MessageLoader interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Message, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Populator resolves chats into PopulatedChat projections.
type Populator struct {
	messages MessageLoader
	users    UserLookup
}

func NewPopulator(messages MessageLoader, users UserLookup) *Populator {
	return &Populator{messages: messages, users: users}
}

// Populate loads the chat's messages in chat order. References that no
// longer resolve are skipped. Sender data is attached only for known users.
func (p *Populator) Populate(ctx context.Context, chat *domain.Chat) (*domain.PopulatedChat, error) {
	messages, err := p.messages.GetByIDs(ctx, chat.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for chat %s: %w", chat.ID, err)
	}

	senders := p.resolveSenders(ctx, lo.Uniq(lo.Map(messages, func(m *domain.Message, _ int) string {
		return m.MsgFrom
	})))

	participants := chat.Participants
	if participants == nil {
		participants = []string{}
	}
	return &domain.PopulatedChat{
		ID:           chat.ID,
		Participants: participants,
		Messages: lo.Map(messages, func(m *domain.Message, _ int) *domain.PopulatedMessage {
			return &domain.PopulatedMessage{Message: *m, Sender: senders[m.MsgFrom]}
		}),
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}, nil
}

// PopulateAll populates each chat, dropping the ones that fail.
func (p *Populator) PopulateAll(ctx context.Context, chats []*domain.Chat) []*domain.PopulatedChat {
	out := make([]*domain.PopulatedChat, 0, len(chats))
	for _, chat := range chats {
		populated, err := p.Populate(ctx, chat)
		if err != nil {
			observability.FromContext(ctx).Warn("dropping unpopulatable chat",
				slog.String("chat_id", chat.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, populated)
	}
	return out
}

func (p *Populator) resolveSenders(ctx context.Context, refs []string) map[string]*domain.Sender {
	senders := make(map[string]*domain.Sender, len(refs))
	for _, ref := range refs {
		user, err := p.lookup(ctx, ref)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				observability.FromContext(ctx).Warn("sender lookup failed",
					slog.String("sender", ref),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		senders[ref] = &domain.Sender{ID: user.ID, Username: user.Username}
	}
	return senders
}

func (p *Populator) lookup(ctx context.Context, ref string) (*domain.User, error) {
	if domain.IsValidObjectID(ref) {
		user, err := p.users.GetByID(ctx, ref)
		if !errors.Is(err, domain.ErrUserNotFound) {
			return user, err
		}
	}
	return p.users.GetByUsername(ctx, ref)
}
