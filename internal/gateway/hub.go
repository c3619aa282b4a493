package gateway

import (
	"sync"
)

// Hub tracks live subscriptions per owner and fans snapshots out to them.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Add registers a new subscription for owner.
func (h *Hub) Add(owner string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	sub := newSubscription(owner, h.remove)
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*Subscription]struct{})
	}
	h.subs[owner][sub] = struct{}{}
	return sub, nil
}

// Publish queues ev on every subscription of owner and reports how many received it.
func (h *Hub) Publish(owner string, ev Event) int {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[owner]))
	for sub := range h.subs[owner] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.enqueue(ev)
	}
	return len(targets)
}

// Owners returns every owner with at least one live subscription.
func (h *Hub) Owners() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	owners := make([]string, 0, len(h.subs))
	for owner := range h.subs {
		owners = append(owners, owner)
	}
	return owners
}

// Count returns the number of live subscriptions for owner.
func (h *Hub) Count(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}

// Close cancels every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.owner]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.owner)
	}
}
