package handler

import (
	"context"
	"log/slog"
	"net/http"

	"fakeso-chat/internal/middleware"
	ws "fakeso-chat/internal/websocket"

	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler accepting browser
// connections from allowedOrigins
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// HandleConnection upgrades the request and starts the client pumps
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", slog.String("error", err.Error()))
		return
	}

	// The client outlives the request, so it must not inherit its context
	client := ws.NewClient(context.WithoutCancel(r.Context()), h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
