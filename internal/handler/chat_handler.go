package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 20

type ChatService interface {
	CreateChat(ctx context.Context, participants []string, initial []domain.MessageInput) (*domain.Chat, error)
	AppendMessage(ctx context.Context, chatID string, in domain.MessageInput) (*domain.Chat, error)
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	GetChatsForAnyRef(ctx context.Context, refs ...string) []*domain.Chat
	AddParticipant(ctx context.Context, chatID, participant string) (*domain.Chat, error)
}

type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type Populator interface {
	Populate(ctx context.Context, chat *domain.Chat) (*domain.PopulatedChat, error)
	PopulateAll(ctx context.Context, chats []*domain.Chat) []*domain.PopulatedChat
}

// Broadcaster pushes realtime events to connected clients. An empty room
// is never passed to EmitToRoom.
type Broadcaster interface {
	Emit(event string, payload any) error
	EmitToRoom(room, event string, payload any) error
}

// ChatHandler handles the direct message chat endpoints
type ChatHandler struct {
	chats       ChatService
	users       UserLookup
	populator   Populator
	broadcaster Broadcaster
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chats ChatService, users UserLookup, populator Populator, broadcaster Broadcaster) *ChatHandler {
	return &ChatHandler{
		chats:       chats,
		users:       users,
		populator:   populator,
		broadcaster: broadcaster,
	}
}

// Routes mounts the chat endpoints on r
func (h *ChatHandler) Routes(r chi.Router) {
	r.Post("/createChat", h.CreateChat)
	r.Get("/getChatsByUser/{username}", h.GetChatsByUser)
	r.Route("/{chatId}", func(r chi.Router) {
		r.Use(requireChatID)
		r.Get("/", h.GetChat)
		r.Post("/addMessage", h.AddMessage)
		r.Post("/participant", h.AddParticipant)
	})
}

// requireChatID rejects requests whose chatId is not an ObjectID
func requireChatID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatId")
		if !domain.IsValidObjectID(chatID) {
			writeError(w, http.StatusBadRequest, "Invalid chat ID")
			return
		}
		next.ServeHTTP(w, r.WithContext(observability.WithChatID(r.Context(), chatID)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decode reads and validates a JSON body into dst, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// writeServiceError maps a service error onto a status code
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "Chat not found")
	default:
		observability.FromContext(r.Context()).Error(fallback, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// populate resolves chat, writing a 500 on failure
func (h *ChatHandler) populate(w http.ResponseWriter, r *http.Request, chat *domain.Chat) (*domain.PopulatedChat, bool) {
	populated, err := h.populator.Populate(r.Context(), chat)
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to populate chat",
			slog.String("chat_id", chat.ID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to populate chat")
		return nil, false
	}
	return populated, true
}

func (h *ChatHandler) emit(r *http.Request, room string, update domain.ChatUpdate) {
	scope := "room"
	var err error
	if room == "" {
		scope = "global"
		err = h.broadcaster.Emit(domain.ChatUpdateEvent, update)
	} else {
		err = h.broadcaster.EmitToRoom(room, domain.ChatUpdateEvent, update)
	}
	observability.ChatUpdatesEmitted.WithLabelValues(scope, string(update.Type)).Inc()
	if err != nil {
		observability.FromContext(r.Context()).Warn("failed to emit chat update",
			slog.String("type", string(update.Type)),
			slog.String("error", err.Error()))
	}
}

// CreateChat creates a chat and announces it to every connected client
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if !decode(w, r, &req) {
		return
	}

	initial := lo.Map(req.Messages, func(m InitialMessageRequest, _ int) domain.MessageInput {
		return m.Input()
	})
	chat, err := h.chats.CreateChat(r.Context(), req.Participants, initial)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save chat")
		return
	}

	populated, ok := h.populate(w, r, chat)
	if !ok {
		return
	}

	h.emit(r, "", domain.ChatUpdate{Chat: populated, Type: domain.ChatUpdateCreated})
	writeJSON(w, http.StatusCreated, populated)
}

// AddMessage appends a direct message and notifies the chat's room
func (h *ChatHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")

	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}

	chat, err := h.chats.AppendMessage(r.Context(), chatID, req.Input())
	if err != nil {
		writeServiceError(w, r, err, "Failed to add message to chat")
		return
	}

	populated, ok := h.populate(w, r, chat)
	if !ok {
		return
	}

	h.emit(r, chatID, domain.ChatUpdate{Chat: populated, Type: domain.ChatUpdateNewMessage})
	writeJSON(w, http.StatusOK, populated)
}

// GetChat returns a populated chat
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chats.GetChat(r.Context(), chi.URLParam(r, "chatId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to retrieve chat")
		return
	}

	populated, ok := h.populate(w, r, chat)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, populated)
}

// GetChatsByUser lists the chats of a known user. Chats that fail to
// populate are left out.
func (h *ChatHandler) GetChatsByUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.users.GetUserByUsername(r.Context(), username)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to look up user",
			slog.String("username", username),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve user chats")
		return
	}

	chats := h.chats.GetChatsForAnyRef(r.Context(), user.Username, user.ID)
	writeJSON(w, http.StatusOK, h.populator.PopulateAll(r.Context(), chats))
}

// AddParticipant adds a participant to a chat
func (h *ChatHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req AddParticipantRequest
	if !decode(w, r, &req) {
		return
	}

	chat, err := h.chats.AddParticipant(r.Context(), chi.URLParam(r, "chatId"), req.ParticipantID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to add participant")
		return
	}

	populated, ok := h.populate(w, r, chat)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, populated)
}
