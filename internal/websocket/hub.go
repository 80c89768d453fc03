package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fakeso-chat/internal/observability"
)

// Frame is the JSON envelope of every realtime message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeFrame marshals an outbound event.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// BroadcastMessage is an encoded frame addressed to a room, or to every
// connected client when Room is empty.
type BroadcastMessage struct {
	Room    string
	Message []byte
}

type membership struct {
	client *Client
	room   string
}

type roomQuery struct {
	room  string
	reply chan int
}

// Hub maintains active clients and their room memberships. All state is
// owned by the Run loop.
type Hub struct {
	// Every connected client
	clients map[*Client]bool

	// Room id to member clients
	rooms map[string]map[*Client]bool

	broadcast  chan *BroadcastMessage
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	roomSize   chan roomQuery

	// Shutdown signal
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		roomSize:   make(chan roomQuery),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			if client.rooms == nil {
				client.rooms = make(map[string]bool)
			}
			h.clients[client] = true
			observability.WebSocketConnectionsActive.Inc()
			slog.Debug("client registered", slog.String("client_id", client.id))

		case client := <-h.unregister:
			h.unregisterClient(client)

		case m := <-h.join:
			h.joinRoom(m.client, m.room)

		case m := <-h.leave:
			h.leaveRoom(m.client, m.room)

		case q := <-h.roomSize:
			q.reply <- len(h.rooms[q.room])

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *BroadcastMessage) {
	targets := h.clients
	if message.Room != "" {
		targets = h.rooms[message.Room]
	}
	for client := range targets {
		select {
		case client.send <- message.Message:
		default:
			// Client's send buffer is full, drop it
			slog.Warn("dropping slow client", slog.String("client_id", client.id))
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) joinRoom(client *Client, room string) {
	if !h.clients[client] || client.rooms[room] {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
	observability.RoomSubscriptionsActive.Inc()
	slog.Debug("client joined room",
		slog.String("client_id", client.id),
		slog.String("chat_id", room))
}

func (h *Hub) leaveRoom(client *Client, room string) {
	if !client.rooms[room] {
		return
	}
	delete(client.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		// Clean up empty room
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	observability.RoomSubscriptionsActive.Dec()
}

// unregisterClient removes a client from the hub and all of its rooms
func (h *Hub) unregisterClient(client *Client) {
	if !h.clients[client] {
		return
	}
	for room := range client.rooms {
		h.leaveRoom(client, room)
	}
	delete(h.clients, client)
	h.closeClientSend(client)
	observability.WebSocketConnectionsActive.Dec()
	slog.Debug("client unregistered", slog.String("client_id", client.id))
}

// closeClientSend safely closes a client's send channel
func (h *Hub) closeClientSend(client *Client) {
	if client.sendClosed {
		return
	}
	client.sendClosed = true
	close(client.send)
}

// shutdown performs graceful cleanup of all connections
func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		h.unregisterClient(client)
	}

	slog.Info("hub shutdown complete")
}

// Broadcast queues an encoded frame for room, or for everyone when room is empty
func (h *Hub) Broadcast(room string, message []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{Room: room, Message: message}:
	case <-h.done:
	}
}

// Emit sends event to every connected client
func (h *Hub) Emit(event string, payload any) error {
	return h.EmitToRoom("", event, payload)
}

// EmitToRoom sends event to the members of room
func (h *Hub) EmitToRoom(room, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	h.Broadcast(room, frame)
	return nil
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join adds client to room
func (h *Hub) Join(client *Client, room string) {
	select {
	case h.join <- membership{client: client, room: room}:
	case <-h.done:
	}
}

// Leave removes client from room
func (h *Hub) Leave(client *Client, room string) {
	select {
	case h.leave <- membership{client: client, room: room}:
	case <-h.done:
	}
}

// RoomSize reports how many clients are in room
func (h *Hub) RoomSize(room string) int {
	reply := make(chan int, 1)
	select {
	case h.roomSize <- roomQuery{room: room, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}
