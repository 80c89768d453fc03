// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the chat service.
package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"fakeso-chat/internal/domain"
)

// ErrMockStore is returned by Func overrides simulating a store outage
var ErrMockStore = errors.New("mock: store unavailable")

func cloneChat(c *domain.Chat) *domain.Chat {
	out := *c
	out.Participants = slices.Clone(c.Participants)
	out.Messages = slices.Clone(c.Messages)
	if out.Messages == nil {
		out.Messages = []string{}
	}
	return &out
}

// MockChatRepository implements domain.ChatRepository for testing
type MockChatRepository struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	CreateFunc             func(ctx context.Context, chat *domain.Chat) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.Chat, error)
	FindByParticipantsFunc func(ctx context.Context, participants []string) ([]*domain.Chat, error)
	AppendMessageFunc      func(ctx context.Context, chatID, messageID string) (*domain.Chat, error)
	AddParticipantFunc     func(ctx context.Context, chatID, participant string) (*domain.Chat, error)
	PingFunc               func(ctx context.Context) error

	// In-memory storage keyed by chat id; Order keeps creation order
	Chats map[string]*domain.Chat
	Order []string
}

// NewMockChatRepository creates a new MockChatRepository with initialized maps
func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{Chats: make(map[string]*domain.Chat)}
}

func (m *MockChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, chat)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Chats == nil {
		m.Chats = make(map[string]*domain.Chat)
	}
	if chat.ID == "" {
		chat.ID = domain.NewID()
	}
	if chat.Messages == nil {
		chat.Messages = []string{}
	}
	now := time.Now().UTC()
	chat.CreatedAt, chat.UpdatedAt = now, now

	m.Chats[chat.ID] = cloneChat(chat)
	m.Order = append(m.Order, chat.ID)
	return nil
}

func (m *MockChatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.Chats[id]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	return cloneChat(chat), nil
}

func (m *MockChatRepository) FindByParticipants(ctx context.Context, participants []string) ([]*domain.Chat, error) {
	if m.FindByParticipantsFunc != nil {
		return m.FindByParticipantsFunc(ctx, participants)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.Chat{}
	for _, id := range m.Order {
		chat := m.Chats[id]
		all := true
		for _, p := range participants {
			if !slices.Contains(chat.Participants, p) {
				all = false
				break
			}
		}
		if all {
			result = append(result, cloneChat(chat))
		}
	}
	return result, nil
}

func (m *MockChatRepository) AppendMessage(ctx context.Context, chatID, messageID string) (*domain.Chat, error) {
	if m.AppendMessageFunc != nil {
		return m.AppendMessageFunc(ctx, chatID, messageID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.Chats[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	chat.Messages = append(chat.Messages, messageID)
	chat.UpdatedAt = time.Now().UTC()
	return cloneChat(chat), nil
}

func (m *MockChatRepository) AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error) {
	if m.AddParticipantFunc != nil {
		return m.AddParticipantFunc(ctx, chatID, participant)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.Chats[chatID]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	if !slices.Contains(chat.Participants, participant) {
		chat.Participants = append(chat.Participants, participant)
	}
	chat.UpdatedAt = time.Now().UTC()
	return cloneChat(chat), nil
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// MockMessageRepository implements domain.MessageRepository for testing
type MockMessageRepository struct {
	mu sync.Mutex

	// Function overrides
	CreateFunc     func(ctx context.Context, message *domain.Message) error
	CreateManyFunc func(ctx context.Context, messages []*domain.Message) error
	GetByIDsFunc   func(ctx context.Context, ids []string) ([]*domain.Message, error)

	// In-memory storage
	Messages map[string]*domain.Message
}

// NewMockMessageRepository creates a new MockMessageRepository
func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{Messages: make(map[string]*domain.Message)}
}

func (m *MockMessageRepository) store(message *domain.Message) {
	if m.Messages == nil {
		m.Messages = make(map[string]*domain.Message)
	}
	if message.ID == "" {
		message.ID = domain.NewID()
	}
	if message.MsgDateTime.IsZero() {
		message.MsgDateTime = time.Now().UTC()
	}
	stored := *message
	m.Messages[message.ID] = &stored
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(message)
	return nil
}

func (m *MockMessageRepository) CreateMany(ctx context.Context, messages []*domain.Message) error {
	if m.CreateManyFunc != nil {
		return m.CreateManyFunc(ctx, messages)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, message := range messages {
		m.store(message)
	}
	return nil
}

func (m *MockMessageRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Message, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*domain.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := m.Messages[id]; ok {
			copied := *msg
			result = append(result, &copied)
		}
	}
	return result, nil
}

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)

	// In-memory storage keyed by user id
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository with initialized maps
func NewMockUserRepository(users ...*domain.User) *MockUserRepository {
	m := &MockUserRepository{Users: make(map[string]*domain.User)}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Users == nil {
		m.Users = make(map[string]*domain.User)
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return domain.ErrUsernameExists
		}
	}
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
