package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"

	"github.com/samber/lo"
)

// ChatService coordinates the chat and message stores. It holds no state of
// its own; every mutation is a single atomic call into a store.
type ChatService struct {
	messageRepo domain.MessageRepository
	chatRepo    domain.ChatRepository
}

func NewChatService(messageRepo domain.MessageRepository, chatRepo domain.ChatRepository) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
	}
}

// storeError passes not-found errors through and tags everything else as a
// persistence failure.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrChatNotFound) {
		return err
	}
	return domain.NewPersistenceError(op, err)
}

func validateParticipants(participants []string) error {
	if len(participants) == 0 {
		return fmt.Errorf("%w: participants must not be empty", domain.ErrInvalidInput)
	}
	for _, p := range participants {
		if !domain.IsValidIdentifier(p) {
			return fmt.Errorf("%w: invalid participant %q", domain.ErrInvalidInput, p)
		}
	}
	if len(lo.Uniq(participants)) != len(participants) {
		return fmt.Errorf("%w: duplicate participant", domain.ErrInvalidInput)
	}
	return nil
}

func newMessage(in domain.MessageInput) *domain.Message {
	return &domain.Message{
		Msg:         in.Msg,
		MsgFrom:     in.MsgFrom,
		MsgDateTime: in.MsgDateTime,
		Type:        in.Type,
	}
}

// CreateChat persists the initial messages, then a chat referencing them in
// order. Messages saved before a failing chat write are not rolled back.
// Initial messages keep the kind the caller gave them.
func (s *ChatService) CreateChat(ctx context.Context, participants []string, initial []domain.MessageInput) (*domain.Chat, error) {
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}
	for _, in := range initial {
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}

	messages := lo.Map(initial, func(in domain.MessageInput, _ int) *domain.Message {
		return newMessage(in)
	})
	if err := s.messageRepo.CreateMany(ctx, messages); err != nil {
		return nil, storeError("save initial messages", err)
	}

	chat := &domain.Chat{
		Participants: participants,
		Messages: lo.Map(messages, func(m *domain.Message, _ int) string {
			return m.ID
		}),
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, storeError("save chat", err)
	}

	observability.FromContext(ctx).Info("chat created",
		slog.String("chat_id", chat.ID),
		slog.Int("participants", len(chat.Participants)),
		slog.Int("messages", len(chat.Messages)),
	)
	return chat, nil
}

// AppendMessage stores a direct message and appends it to the chat. When the
// chat does not exist the stored message is left unreferenced.
func (s *ChatService) AppendMessage(ctx context.Context, chatID string, in domain.MessageInput) (*domain.Chat, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Type = domain.MessageTypeDirect

	message := newMessage(in)
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, storeError("save message", err)
	}

	chat, err := s.chatRepo.AppendMessage(ctx, chatID, message.ID)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			observability.FromContext(ctx).Warn("message saved for missing chat",
				slog.String("chat_id", chatID),
				slog.String("message_id", message.ID),
			)
		}
		return nil, storeError("append message", err)
	}
	return chat, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, storeError("get chat", err)
	}
	return chat, nil
}

// GetChatsForUser returns the chats whose participants include every given
// identity. A store failure is logged and yields an empty list.
func (s *ChatService) GetChatsForUser(ctx context.Context, identities ...string) []*domain.Chat {
	identities = lo.Uniq(identities)
	if len(identities) == 0 {
		return []*domain.Chat{}
	}

	chats, err := s.chatRepo.FindByParticipants(ctx, identities)
	if err != nil {
		observability.FromContext(ctx).Error("chat lookup failed",
			slog.Any("identities", identities),
			slog.String("error", err.Error()),
		)
		return []*domain.Chat{}
	}
	return chats
}

// GetChatsForAnyRef returns the chats listing any of refs as a participant,
// oldest first. A user can be referenced by id or by username, so listing a
// user's chats passes both.
func (s *ChatService) GetChatsForAnyRef(ctx context.Context, refs ...string) []*domain.Chat {
	var chats []*domain.Chat
	for _, ref := range lo.Uniq(lo.Compact(refs)) {
		chats = append(chats, s.GetChatsForUser(ctx, ref)...)
	}
	chats = lo.UniqBy(chats, func(c *domain.Chat) string { return c.ID })
	slices.SortStableFunc(chats, func(a, b *domain.Chat) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if chats == nil {
		return []*domain.Chat{}
	}
	return chats
}

// AddParticipant adds participant to the chat with set semantics.
func (s *ChatService) AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error) {
	if !domain.IsValidIdentifier(participant) {
		return nil, fmt.Errorf("%w: invalid participant %q", domain.ErrInvalidInput, participant)
	}

	chat, err := s.chatRepo.AddParticipant(ctx, chatID, participant)
	if err != nil {
		return nil, storeError("add participant", err)
	}
	return chat, nil
}
