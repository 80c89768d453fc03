// Package messaging relays chatUpdate frames between server instances so
// that a client connected to any instance sees every update.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/websocket"

	"github.com/google/uuid"
)

// Exchange (RabbitMQ) and channel (Redis) carrying relay envelopes
const UpdatesTopic = "chat.updates"

const publishTimeout = 5 * time.Second

// Envelope wraps an encoded frame with its target room and the instance that
// produced it. An empty Room addresses every client.
type Envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// Relay moves envelopes between instances.
type Relay interface {
	Name() string
	Publish(ctx context.Context, env *Envelope) error
	// Subscribe delivers envelopes to handler until ctx is done.
	Subscribe(ctx context.Context, handler func(*Envelope)) error
	Ping(ctx context.Context) error
	Close() error
}

// LocalBroadcaster delivers encoded frames to this instance's clients.
type LocalBroadcaster interface {
	Broadcast(room string, frame []byte)
}

var _ LocalBroadcaster = (*websocket.Hub)(nil)

// RelayBroadcaster fans every emitted frame out to local clients and to the
// relay, and replays envelopes from other instances locally.
type RelayBroadcaster struct {
	local  LocalBroadcaster
	relay  Relay
	origin string
}

func NewRelayBroadcaster(local LocalBroadcaster, relay Relay) *RelayBroadcaster {
	return &RelayBroadcaster{
		local:  local,
		relay:  relay,
		origin: uuid.NewString(),
	}
}

// Origin returns this instance's id as stamped on outgoing envelopes
func (b *RelayBroadcaster) Origin() string {
	return b.origin
}

// Emit sends event to every client on every instance
func (b *RelayBroadcaster) Emit(event string, payload any) error {
	return b.EmitToRoom("", event, payload)
}

// EmitToRoom sends event to the members of room on every instance. Local
// delivery happens even when publishing to the relay fails.
func (b *RelayBroadcaster) EmitToRoom(room, event string, payload any) error {
	frame, err := websocket.EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	b.local.Broadcast(room, frame)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.relay.Publish(ctx, &Envelope{Origin: b.origin, Room: room, Frame: frame}); err != nil {
		return fmt.Errorf("failed to relay %s via %s: %w", event, b.relay.Name(), err)
	}
	observability.RelayEnvelopes.WithLabelValues(b.relay.Name(), "out").Inc()
	return nil
}

// Start subscribes to the relay, skipping envelopes this instance produced
func (b *RelayBroadcaster) Start(ctx context.Context) error {
	return b.relay.Subscribe(ctx, func(env *Envelope) {
		if env.Origin == b.origin {
			return
		}
		observability.RelayEnvelopes.WithLabelValues(b.relay.Name(), "in").Inc()
		b.local.Broadcast(env.Room, env.Frame)
	})
}

func decodeEnvelope(relay string, body []byte) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Error("error unmarshaling relay envelope",
			slog.String("relay", relay),
			slog.String("error", err.Error()),
			slog.Int("body_size", len(body)))
		return nil, false
	}
	return &env, true
}
