package notifier

import (
	"context"
	"sync"
)

// Event kinds. Events carry no payload beyond "something of this kind
// changed for this owner"; subscribers re-fetch the current state.
const (
	KindCart  = "cart"
	KindOrder = "order"
)

// AdminOwner is the reserved key the admin order feed subscribes to.
const AdminOwner = "admin"

type Event struct {
	OwnerID string `json:"owner_id"`
	Kind    string `json:"kind"`
}

// Bus fans change events out to per-owner subscribers.
type Bus interface {
	Publish(ctx context.Context, ev Event)
	// Subscribe returns a channel of events for the given owner and a
	// cancel function that must be called to release the subscription.
	Subscribe(ownerID string) (<-chan Event, func())
}

// Hub is the in-process Bus. Subscriber channels are buffered and
// events are dropped when a subscriber falls behind: every event is a
// re-fetch trigger, so a dropped one is covered by the next.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[chan Event]struct{})
	}
	h.subs[ownerID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[ownerID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, ownerID)
			}
		}
	}
	return ch, cancel
}
