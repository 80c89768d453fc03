package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"fakeso-chat/internal/domain"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/websocket"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBus is a shared in-process relay; every subscriber sees every envelope.
type memoryBus struct {
	mu       sync.Mutex
	handlers []func(*Envelope)
	failWith error
}

func (b *memoryBus) Name() string { return "memory" }

func (b *memoryBus) Publish(_ context.Context, env *Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	for _, h := range b.handlers {
		h(env)
	}
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, handler func(*Envelope)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *memoryBus) Ping(context.Context) error { return nil }
func (b *memoryBus) Close() error               { return nil }

type delivery struct {
	room  string
	frame []byte
}

type recordingLocal struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (r *recordingLocal) Broadcast(room string, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery{room: room, frame: frame})
}

func (r *recordingLocal) all() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.deliveries...)
}

func TestRelayBroadcaster_CrossInstance(t *testing.T) {
	bus := &memoryBus{}
	localA, localB := &recordingLocal{}, &recordingLocal{}
	a := NewRelayBroadcaster(localA, bus)
	b := NewRelayBroadcaster(localB, bus)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	assert.NotEqual(t, a.Origin(), b.Origin())

	room := domain.NewID()
	update := domain.ChatUpdate{Chat: &domain.PopulatedChat{ID: room}, Type: domain.ChatUpdateNewMessage}
	require.NoError(t, a.EmitToRoom(room, domain.ChatUpdateEvent, update))

	// A delivers once locally and ignores its own envelope
	require.Len(t, localA.all(), 1)
	require.Len(t, localB.all(), 1)
	assert.Equal(t, room, localB.all()[0].room)
	assert.Equal(t, localA.all()[0].frame, localB.all()[0].frame)

	var frame websocket.Frame
	require.NoError(t, json.Unmarshal(localB.all()[0].frame, &frame))
	assert.Equal(t, "chatUpdate", frame.Event)
}

func TestRelayBroadcaster_EmitIsGlobal(t *testing.T) {
	bus := &memoryBus{}
	local := &recordingLocal{}
	b := NewRelayBroadcaster(local, bus)

	before := testutil.ToFloat64(observability.RelayEnvelopes.WithLabelValues("memory", "out"))
	require.NoError(t, b.Emit(domain.ChatUpdateEvent, domain.ChatUpdate{Type: domain.ChatUpdateCreated}))

	require.Len(t, local.all(), 1)
	assert.Equal(t, "", local.all()[0].room)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.RelayEnvelopes.WithLabelValues("memory", "out")))
}

func TestRelayBroadcaster_PublishFailureStillDeliversLocally(t *testing.T) {
	bus := &memoryBus{failWith: errors.New("broker down")}
	local := &recordingLocal{}
	b := NewRelayBroadcaster(local, bus)

	err := b.EmitToRoom(domain.NewID(), domain.ChatUpdateEvent, domain.ChatUpdate{})
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, local.all(), 1)
}

func TestDecodeEnvelope(t *testing.T) {
	env, ok := decodeEnvelope("memory", []byte(`{"origin":"o","room":"r","frame":{"event":"chatUpdate"}}`))
	require.True(t, ok)
	assert.Equal(t, "o", env.Origin)
	assert.Equal(t, "r", env.Room)
	assert.JSONEq(t, `{"event":"chatUpdate"}`, string(env.Frame))

	_, ok = decodeEnvelope("memory", []byte("garbage"))
	assert.False(t, ok)
}
