package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fakeso-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, response any) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.EscapedPath()
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return New(server.URL + "/"), rec
}

func sampleChat(id string, participants ...string) *domain.PopulatedChat {
	return &domain.PopulatedChat{ID: id, Participants: participants, Messages: []*domain.PopulatedMessage{}}
}

func TestClient_CreateChat(t *testing.T) {
	id := domain.NewID()
	c, rec := newTestServer(t, http.StatusCreated, sampleChat(id, "alice", "bob"))

	chat, err := c.CreateChat(context.Background(), []string{"alice", "bob"}, nil)

	require.NoError(t, err)
	assert.Equal(t, id, chat.ID)
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/api/chat/createChat", rec.Path)
	assert.Equal(t, []any{"alice", "bob"}, rec.Body["participants"])
	assert.NotContains(t, rec.Body, "messages")
}

func TestClient_CreateChat_WithInitialMessages(t *testing.T) {
	id := domain.NewID()
	c, rec := newTestServer(t, http.StatusCreated, sampleChat(id, "alice", "bob"))

	_, err := c.CreateChat(context.Background(), []string{"alice", "bob"},
		[]NewMessage{{Msg: "hi", MsgFrom: "alice", Type: "global"}, {Msg: "yo", MsgFrom: "bob"}})

	require.NoError(t, err)
	messages, ok := rec.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "global", messages[0].(map[string]any)["type"])
	assert.NotContains(t, messages[1].(map[string]any), "type")
}

func TestClient_AddMessage(t *testing.T) {
	id := domain.NewID()
	c, rec := newTestServer(t, http.StatusOK, sampleChat(id, "alice"))

	_, err := c.AddMessage(context.Background(), id, NewMessage{Msg: "hi", MsgFrom: "alice"})

	require.NoError(t, err)
	assert.Equal(t, "/api/chat/"+id+"/addMessage", rec.Path)
	assert.Equal(t, "hi", rec.Body["msg"])
	assert.Equal(t, "alice", rec.Body["msgFrom"])
	assert.NotContains(t, rec.Body, "msgDateTime")
}

func TestClient_AddParticipant(t *testing.T) {
	id := domain.NewID()
	c, rec := newTestServer(t, http.StatusOK, sampleChat(id, "alice", "carol"))

	chat, err := c.AddParticipant(context.Background(), id, "carol")

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, chat.Participants)
	assert.Equal(t, "/api/chat/"+id+"/participant", rec.Path)
	assert.Equal(t, "carol", rec.Body["participantId"])
}

func TestClient_GetChat(t *testing.T) {
	id := domain.NewID()
	c, rec := newTestServer(t, http.StatusOK, sampleChat(id, "alice"))

	chat, err := c.GetChat(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, chat.ID)
	assert.Equal(t, http.MethodGet, rec.Method)
	assert.Equal(t, "/api/chat/"+id, rec.Path)
}

func TestClient_GetChatsByUser(t *testing.T) {
	c, rec := newTestServer(t, http.StatusOK, []*domain.PopulatedChat{sampleChat(domain.NewID(), "alice")})

	chats, err := c.GetChatsByUser(context.Background(), "alice")

	require.NoError(t, err)
	assert.Len(t, chats, 1)
	assert.Equal(t, "/api/chat/getChatsByUser/alice", rec.Path)
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusNotFound, map[string]string{"error": "Chat not found"})

	_, err := c.GetChat(context.Background(), domain.NewID())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Chat not found", apiErr.Message)
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).GetChatsByUser(context.Background(), "alice")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url).GetChat(context.Background(), domain.NewID())

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
