// Package chatclient talks to the chat server over REST and websocket and
// drives the direct message view on top of them.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fakeso-chat/internal/domain"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api: %d %s", e.Status, e.Message)
}

// NewMessage is a message composed by the client
type NewMessage struct {
	Msg         string `json:"msg"`
	MsgFrom     string `json:"msgFrom"`
	MsgDateTime string `json:"msgDateTime,omitempty"`
	// Type is stored as given for messages sent with CreateChat. The server
	// ignores it on AddMessage.
	Type string `json:"type,omitempty"`
}

// Client calls the /api/chat endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateChat(ctx context.Context, participants []string, messages []NewMessage) (*domain.PopulatedChat, error) {
	body := map[string]any{"participants": participants}
	if len(messages) > 0 {
		body["messages"] = messages
	}
	var chat domain.PopulatedChat
	if err := c.do(ctx, http.MethodPost, "/api/chat/createChat", body, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) AddMessage(ctx context.Context, chatID string, msg NewMessage) (*domain.PopulatedChat, error) {
	var chat domain.PopulatedChat
	if err := c.do(ctx, http.MethodPost, "/api/chat/"+url.PathEscape(chatID)+"/addMessage", msg, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) GetChat(ctx context.Context, chatID string) (*domain.PopulatedChat, error) {
	var chat domain.PopulatedChat
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(chatID), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) GetChatsByUser(ctx context.Context, username string) ([]*domain.PopulatedChat, error) {
	chats := []*domain.PopulatedChat{}
	if err := c.do(ctx, http.MethodGet, "/api/chat/getChatsByUser/"+url.PathEscape(username), nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (c *Client) AddParticipant(ctx context.Context, chatID, participant string) (*domain.PopulatedChat, error) {
	var chat domain.PopulatedChat
	body := map[string]string{"participantId": participant}
	if err := c.do(ctx, http.MethodPost, "/api/chat/"+url.PathEscape(chatID)+"/participant", body, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
