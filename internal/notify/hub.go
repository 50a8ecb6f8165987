// Package notify fans committed store changes out to registered observers.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mtlprog/tasktrack/internal/store"
)

const subscriberBuffer = 64

// Filter selects the changes a subscriber is interested in.
type Filter func(change store.Change) bool

// Hub manages change subscriptions.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscription is one registered observer. Its handler runs on a dedicated
// goroutine, one change at a time.
type Subscription struct {
	id      string
	hub     *Hub
	filter  Filter
	handler func(store.Change)
	events  chan store.Change
	done    chan struct{}
	once    sync.Once
}

// Subscribe registers handler for every change accepted by filter. A nil
// filter accepts everything.
func (h *Hub) Subscribe(filter Filter, handler func(store.Change)) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		hub:     h,
		filter:  filter,
		handler: handler,
		events:  make(chan store.Change, subscriberBuffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	go sub.run()

	slog.Debug("change subscription registered", "subscription_id", sub.id)
	return sub
}

// Publish delivers change to every matching subscriber without blocking.
// Subscribers re-read state on each change, so when a buffer is full the
// change is dropped: a refresh is already pending.
func (h *Hub) Publish(change store.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		select {
		case sub.events <- change:
		default:
			slog.Debug("change coalesced for busy subscriber", "subscription_id", sub.id)
		}
	}
}

// Count returns the number of active subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

// Unsubscribe stops delivery of further changes. A handler call already in
// progress is not interrupted. Safe to call more than once, including from
// inside the handler.
func (s *Subscription) Unsubscribe() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s.id)
	s.hub.mu.Unlock()

	s.stop()
	slog.Debug("change subscription removed", "subscription_id", s.id)
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case change := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(change)
		}
	}
}
