package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scour/internal/core/domain"
)

func record(id string) domain.SearchRecord {
	return domain.SearchRecord{ID: id, Query: "needle", State: domain.StateInProgress}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	first, cancelFirst := hub.Subscribe(4)
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe(4)
	defer cancelSecond()

	require.NoError(t, hub.AnnounceCreated(record("s1")))
	require.NoError(t, hub.AnnounceUpdated(record("s1")))
	require.NoError(t, hub.AnnounceDeleted(record("s1")))

	for _, ch := range []<-chan Event{first, second} {
		assert.Equal(t, EventCreated, (<-ch).Kind)
		assert.Equal(t, EventUpdated, (<-ch).Kind)

		ev := <-ch
		assert.Equal(t, EventDeleted, ev.Kind)
		assert.Equal(t, "s1", ev.Record.ID)
	}
}

func TestHubDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	// Buffer holds one; the second publish must not block the announcer.
	require.NoError(t, hub.AnnounceUpdated(record("s1")))
	require.NoError(t, hub.AnnounceUpdated(record("s2")))

	assert.Equal(t, int64(1), hub.Dropped())
	ev := <-ch
	assert.Equal(t, "s1", ev.Record.ID)
}

func TestUnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe(4)
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// No subscriber left; nothing is dropped either.
	require.NoError(t, hub.AnnounceUpdated(record("s1")))
	assert.Zero(t, hub.Dropped())
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	hub := NewHub()

	first, _ := hub.Subscribe(4)
	second, _ := hub.Subscribe(4)

	hub.Close()
	hub.Close() // idempotent

	_, open := <-first
	assert.False(t, open)
	_, open = <-second
	assert.False(t, open)

	// Announcements after close are discarded without error.
	require.NoError(t, hub.AnnounceCreated(record("s1")))

	// Subscriptions after close come back already closed.
	ch, cancel := hub.Subscribe(4)
	defer cancel()
	_, open = <-ch
	assert.False(t, open)
}

func TestSubscribeDefaultBuffer(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe(0)
	defer cancel()

	// The default buffer absorbs a burst without drops.
	for i := 0; i < DefaultSubscriberBuffer; i++ {
		require.NoError(t, hub.AnnounceUpdated(record("s1")))
	}
	assert.Zero(t, hub.Dropped())
	assert.Len(t, ch, DefaultSubscriberBuffer)
}
