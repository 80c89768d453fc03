package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"fakeso-chat/internal/domain"
	ws "fakeso-chat/internal/websocket"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Subscription is a realtime connection to the server's /ws endpoint.
// Updates is closed when the connection ends.
type Subscription struct {
	conn    *websocket.Conn
	updates chan domain.ChatUpdate
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// Dial connects to the websocket endpoint of the server at baseURL. An
// http(s) base URL is rewritten to ws(s).
func Dial(ctx context.Context, baseURL string, header http.Header) (*Subscription, error) {
	wsURL := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	s := &Subscription{
		conn:    conn,
		updates: make(chan domain.ChatUpdate, 64),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Updates delivers every chatUpdate frame received
func (s *Subscription) Updates() <-chan domain.ChatUpdate {
	return s.updates
}

func (s *Subscription) Join(chatID string) error {
	return s.send(ws.EventJoinChat, chatID)
}

func (s *Subscription) Leave(chatID string) error {
	return s.send(ws.EventLeaveChat, chatID)
}

func (s *Subscription) send(event, chatID string) error {
	frame, err := ws.EncodeFrame(event, chatID)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Subscription) readLoop() {
	defer close(s.updates)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				slog.Debug("subscription closed", slog.String("error", err.Error()))
			}
			return
		}

		var frame ws.Frame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event != domain.ChatUpdateEvent {
			continue
		}
		var update domain.ChatUpdate
		if err := json.Unmarshal(frame.Data, &update); err != nil || update.Chat == nil {
			continue
		}

		select {
		case s.updates <- update:
		case <-s.done:
			return
		}
	}
}

// Close sends a close frame and tears down the connection
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
