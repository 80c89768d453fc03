package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChatUpdatesEmitted(t *testing.T) {
	counter := ChatUpdatesEmitted.WithLabelValues("room", "newMessage")
	before := testutil.ToFloat64(counter)

	counter.Inc()
	counter.Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRoomSubscriptionsActive(t *testing.T) {
	before := testutil.ToFloat64(RoomSubscriptionsActive)

	RoomSubscriptionsActive.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RoomSubscriptionsActive))

	RoomSubscriptionsActive.Dec()
	assert.Equal(t, before, testutil.ToFloat64(RoomSubscriptionsActive))
}

func TestObserveStore(t *testing.T) {
	before := testutil.CollectAndCount(StoreOperationDuration)

	ObserveStore("test-backend", "observe_store_test", time.Now().Add(-10*time.Millisecond))

	assert.Equal(t, before+1, testutil.CollectAndCount(StoreOperationDuration))
}
