// Package events broadcasts completed post mutations to live subscribers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"

	"github.com/google/uuid"
)

// allAuthors is the subscription key that receives every event.
const allAuthors = ""

// Hub fans events out to subscribers. A subscriber that is not reading
// misses events instead of blocking the publisher.
type Hub struct {
	mu sync.RWMutex
	//   map[authorID] map[subscriberID] channel
	subs map[string]map[string]chan domain.Event
	now  func() time.Time
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]chan domain.Event),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers a subscriber until ctx is done. An empty authorID
// receives events for all authors.
func (h *Hub) Subscribe(ctx context.Context, authorID string) <-chan domain.Event {
	ch := make(chan domain.Event, 8)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[authorID] == nil {
		h.subs[authorID] = make(map[string]chan domain.Event)
	}
	h.subs[authorID][subID] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if authorSubs, ok := h.subs[authorID]; ok {
			delete(authorSubs, subID)
			if len(authorSubs) == 0 {
				delete(h.subs, authorID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish stamps e with an id and time if missing and delivers it.
func (h *Hub) Publish(e domain.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.deliver(allAuthors, e)
	if e.AuthorID != allAuthors {
		h.deliver(e.AuthorID, e)
	}
}

// deliver must be called with mu held.
func (h *Hub) deliver(key string, e domain.Event) {
	for _, ch := range h.subs[key] {
		select {
		case ch <- e:
		default:
			// subscriber is behind; drop
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, authorSubs := range h.subs {
		n += len(authorSubs)
	}
	return n
}
