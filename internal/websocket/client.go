package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fakeso-chat/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 1024
)

// Inbound events
const (
	EventJoinChat  = "joinChat"
	EventLeaveChat = "leaveChat"
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// rooms and sendClosed are owned by the hub's Run loop
	rooms      map[string]bool
	sendClosed bool

	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn) *Client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		id:        uuid.NewString(),
		rooms:     make(map[string]bool),
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// ReadPump handles room membership frames until the connection closes
func (c *Client) ReadPump() {
	defer func() {
		c.ctxCancel()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline",
			slog.String("error", err.Error()),
			slog.String("client_id", c.id))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("client_id", c.id))
			}
			break
		}
		c.handleFrame(message)
	}
}

// handleFrame applies a joinChat or leaveChat frame. Frames that do not
// carry a valid chat id are ignored.
func (c *Client) handleFrame(message []byte) {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		slog.Debug("invalid frame format",
			slog.String("error", err.Error()),
			slog.String("client_id", c.id))
		return
	}

	var chatID string
	if err := json.Unmarshal(frame.Data, &chatID); err != nil || !domain.IsValidObjectID(chatID) {
		slog.Debug("ignoring frame without chat id",
			slog.String("event", frame.Event),
			slog.String("client_id", c.id))
		return
	}

	switch frame.Event {
	case EventJoinChat:
		c.hub.Join(c, chatID)
	case EventLeaveChat:
		c.hub.Leave(c, chatID)
	default:
		slog.Debug("unknown event",
			slog.String("event", frame.Event),
			slog.String("client_id", c.id))
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				_ = c.writeMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// writeMessage writes a message to the WebSocket connection in a thread-safe manner
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Warn("failed to set write deadline",
			slog.String("error", err.Error()),
			slog.String("client_id", c.id))
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the WebSocket connection
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
