package gateway

import (
	"sync"
)

// Subscription delivers an owner's snapshots in order. Events are queued without
// bound so publishers never block on a slow reader, and no event is dropped or merged.
type Subscription struct {
	owner  string
	events chan Event

	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	detach func(*Subscription)
}

func newSubscription(owner string, detach func(*Subscription)) *Subscription {
	s := &Subscription{
		owner:  owner,
		events: make(chan Event),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		detach: detach,
	}
	go s.pump()
	return s
}

// Owner returns the owner the subscription is scoped to.
func (s *Subscription) Owner() string { return s.owner }

// Events returns the delivery channel. It is closed after Unsubscribe.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Unsubscribe stops delivery. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		if s.detach != nil {
			s.detach(s)
		}
	})
}

func (s *Subscription) enqueue(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}
