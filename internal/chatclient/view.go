package chatclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fakeso-chat/internal/domain"

	"github.com/samber/lo"
)

// ViewState is the state of the message pane
type ViewState int

const (
	NoChatSelected ViewState = iota
	Composing
	Sending
)

func (s ViewState) String() string {
	switch s {
	case NoChatSelected:
		return "no-chat-selected"
	case Composing:
		return "composing"
	case Sending:
		return "sending"
	default:
		return fmt.Sprintf("ViewState(%d)", int(s))
	}
}

var (
	ErrNotComposing   = errors.New("no chat selected")
	ErrEmptyDraft     = errors.New("message is empty")
	ErrSendInProgress = errors.New("a message is already being sent")
	ErrNoUserSelected = errors.New("no user selected")
)

// ChatAPI is the subset of Client the view calls
type ChatAPI interface {
	CreateChat(ctx context.Context, participants []string, messages []NewMessage) (*domain.PopulatedChat, error)
	AddMessage(ctx context.Context, chatID string, msg NewMessage) (*domain.PopulatedChat, error)
	GetChat(ctx context.Context, chatID string) (*domain.PopulatedChat, error)
	GetChatsByUser(ctx context.Context, username string) ([]*domain.PopulatedChat, error)
}

// Rooms joins and leaves realtime chat rooms
type Rooms interface {
	Join(chatID string) error
	Leave(chatID string) error
}

// DirectMessageView holds the state of one user's direct message screen:
// the chat list, the open chat, the draft, and the create-chat panel.
// It is safe for concurrent use; Send releases the lock while the request
// is in flight so State reports Sending.
type DirectMessageView struct {
	mu    sync.Mutex
	api   ChatAPI
	rooms Rooms
	me    string

	state    ViewState
	chats    []*domain.PopulatedChat
	selected *domain.PopulatedChat
	draft    string
	lastErr  error

	panelOpen  bool
	chosenUser string
}

// NewDirectMessageView creates a view for the user me. rooms may be nil
// when no realtime connection is available.
func NewDirectMessageView(api ChatAPI, rooms Rooms, me string) *DirectMessageView {
	return &DirectMessageView{api: api, rooms: rooms, me: me}
}

// Load fetches the chat list of the current user
func (v *DirectMessageView) Load(ctx context.Context) error {
	chats, err := v.api.GetChatsByUser(ctx, v.me)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.lastErr = err
		return err
	}
	v.chats = chats
	return nil
}

// SelectChat opens chatID, moving the realtime subscription from the
// previous chat's room to the new one.
func (v *DirectMessageView) SelectChat(ctx context.Context, chatID string) error {
	v.mu.Lock()
	if v.state == Sending {
		v.mu.Unlock()
		return ErrSendInProgress
	}
	v.mu.Unlock()

	chat, err := v.api.GetChat(ctx, chatID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.lastErr = err
		return err
	}

	if v.rooms != nil {
		if v.selected != nil && v.selected.ID != chat.ID {
			if err := v.rooms.Leave(v.selected.ID); err != nil {
				v.lastErr = err
			}
		}
		if err := v.rooms.Join(chat.ID); err != nil {
			v.lastErr = err
		}
	}

	if v.selected == nil || v.selected.ID != chat.ID {
		v.draft = ""
	}
	v.selected = chat
	v.upsert(chat)
	v.state = Composing
	return nil
}

func (v *DirectMessageView) SetDraft(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = text
}

// Send posts the draft to the open chat. The draft is cleared only when
// the server accepts the message.
func (v *DirectMessageView) Send(ctx context.Context) error {
	v.mu.Lock()
	switch {
	case v.state == Sending:
		v.mu.Unlock()
		return ErrSendInProgress
	case v.state != Composing || v.selected == nil:
		v.mu.Unlock()
		return ErrNotComposing
	case strings.TrimSpace(v.draft) == "":
		v.mu.Unlock()
		return ErrEmptyDraft
	}
	chatID := v.selected.ID
	msg := NewMessage{Msg: v.draft, MsgFrom: v.me}
	v.state = Sending
	v.lastErr = nil
	v.mu.Unlock()

	chat, err := v.api.AddMessage(ctx, chatID, msg)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = Composing
	if err != nil {
		v.lastErr = err
		return err
	}
	v.draft = ""
	v.upsert(chat)
	if v.selected != nil && v.selected.ID == chat.ID {
		v.selected = chat
	}
	return nil
}

func (v *DirectMessageView) ToggleCreatePanel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panelOpen = !v.panelOpen
	if !v.panelOpen {
		v.chosenUser = ""
	}
}

// SelectUser chooses the other participant of the chat to create
func (v *DirectMessageView) SelectUser(username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.chosenUser = username
}

// CreateChat creates a chat between the current user and the chosen user,
// then closes the panel and opens the new chat.
func (v *DirectMessageView) CreateChat(ctx context.Context) error {
	v.mu.Lock()
	chosen := v.chosenUser
	v.mu.Unlock()
	if chosen == "" {
		return ErrNoUserSelected
	}

	chat, err := v.api.CreateChat(ctx, []string{v.me, chosen}, nil)
	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.mu.Unlock()
		return err
	}

	v.mu.Lock()
	v.panelOpen = false
	v.chosenUser = ""
	v.upsert(chat)
	v.mu.Unlock()

	return v.SelectChat(ctx, chat.ID)
}

// ApplyUpdate folds a realtime chatUpdate into the view
func (v *DirectMessageView) ApplyUpdate(update domain.ChatUpdate) {
	if update.Chat == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	switch update.Type {
	case domain.ChatUpdateCreated:
		if update.Chat.HasParticipant(v.me) {
			v.upsert(update.Chat)
		}
	case domain.ChatUpdateNewMessage:
		v.replace(update.Chat)
		if v.selected != nil && v.selected.ID == update.Chat.ID {
			v.selected = update.Chat
		}
	}
}

// upsert replaces the chat with the same id or appends it. Callers hold mu.
func (v *DirectMessageView) upsert(chat *domain.PopulatedChat) {
	if !v.replace(chat) {
		v.chats = append(v.chats, chat)
	}
}

func (v *DirectMessageView) replace(chat *domain.PopulatedChat) bool {
	_, idx, found := lo.FindIndexOf(v.chats, func(c *domain.PopulatedChat) bool {
		return c.ID == chat.ID
	})
	if found {
		v.chats[idx] = chat
	}
	return found
}

func (v *DirectMessageView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Chats returns a copy of the chat list
func (v *DirectMessageView) Chats() []*domain.PopulatedChat {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*domain.PopulatedChat(nil), v.chats...)
}

func (v *DirectMessageView) Selected() *domain.PopulatedChat {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *DirectMessageView) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// CanSend reports whether the send action is enabled
func (v *DirectMessageView) CanSend() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == Composing && strings.TrimSpace(v.draft) != ""
}

// Err returns the last failure, if any
func (v *DirectMessageView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

func (v *DirectMessageView) PanelOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panelOpen
}

func (v *DirectMessageView) ChosenUser() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chosenUser
}

func (v *DirectMessageView) Me() string {
	return v.me
}
