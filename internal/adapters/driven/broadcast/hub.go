// Package broadcast provides an in-process fan-out implementation of the
// broadcast sink port. Subscribers receive lifecycle events over buffered
// channels; a subscriber that cannot keep up has events dropped rather
// than blocking the announcing search.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
	"github.com/custodia-labs/scour/internal/logger"
)

// EventKind classifies a broadcast event.
type EventKind string

const (
	// EventCreated announces a new search record.
	EventCreated EventKind = "created"
	// EventUpdated announces a progress or finalization update.
	EventUpdated EventKind = "updated"
	// EventDeleted announces a record deletion.
	EventDeleted EventKind = "deleted"
)

// Event is one announcement. The record never carries responses.
type Event struct {
	Kind   EventKind
	Record domain.SearchRecord
}

// DefaultSubscriberBuffer is the channel capacity handed to subscribers.
const DefaultSubscriberBuffer = 64

// Ensure Hub implements the sink interface.
var _ driven.BroadcastSink = (*Hub)(nil)

// Hub fans announcements out to all current subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool

	dropped atomic.Int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its event channel and
// an unsubscribe function. A buffer of 0 selects DefaultSubscriberBuffer.
// The channel is closed on unsubscribe or hub close.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

// AnnounceCreated announces a newly created record.
func (h *Hub) AnnounceCreated(record domain.SearchRecord) error {
	h.publish(Event{Kind: EventCreated, Record: record})
	return nil
}

// AnnounceUpdated announces a progress or finalization update.
func (h *Hub) AnnounceUpdated(record domain.SearchRecord) error {
	h.publish(Event{Kind: EventUpdated, Record: record})
	return nil
}

// AnnounceDeleted announces that a record was deleted.
func (h *Hub) AnnounceDeleted(record domain.SearchRecord) error {
	h.publish(Event{Kind: EventDeleted, Record: record})
	return nil
}

// Dropped returns the number of events discarded because a subscriber's
// buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes all subscriber channels. Further announcements are
// discarded; further Subscribe calls return closed channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// publish delivers an event to every subscriber without ever blocking.
func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			logger.Debug("broadcast: dropped %s event for search %s (slow subscriber)", ev.Kind, ev.Record.ID)
		}
	}
}
