// Package event provides a small in-process dispatcher for push events.
//
// The event channel fires every frame it receives; dashboards listen for the
// names they care about. A Bus is per App, not global, so tests and multiple
// profiles never share listeners.
package event

import (
	"encoding/json"
	"sync"
)

// Push event names delivered by the backend.
const (
	OrderAccepted  = "order-accepted"
	OrderDelivered = "order-delivered"
	OrderCancelled = "order-cancelled"
	NewOrder       = "newOrder"
)

// Event is one push notification. Data is left raw so each listener decodes
// only what it needs.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler receives an event.
type Handler func(Event)

type listener struct {
	id int
	fn Handler
}

// Bus dispatches events by name. The zero value is not usable; call NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]listener
	any      []listener
	nextID   int
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]listener{}}
}

// Listen registers handler for the given event name and returns a func that
// removes it.
func (b *Bus) Listen(name string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[name] = append(b.handlers[name], listener{id: id, fn: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[name] = remove(b.handlers[name], id)
	}
}

// ListenAll registers handler for every event. `aquaportal watch` uses it.
func (b *Bus) ListenAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.any = append(b.any, listener{id: id, fn: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.any = remove(b.any, id)
	}
}

// Fire dispatches ev synchronously to all registered listeners.
func (b *Bus) Fire(ev Event) {
	b.mu.RLock()
	hs := make([]listener, 0, len(b.handlers[ev.Name])+len(b.any))
	hs = append(hs, b.handlers[ev.Name]...)
	hs = append(hs, b.any...)
	b.mu.RUnlock()

	for _, h := range hs {
		h.fn(ev)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]listener{}
	b.any = nil
}

func remove(ls []listener, id int) []listener {
	out := ls[:0:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}

// OrderID extracts the order id from an order-* event. The backend sends
// either a bare id string or an object carrying orderId or _id.
func OrderID(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		OrderID string `json:"orderId"`
		ID      string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.OrderID != "" {
			return obj.OrderID
		}
		return obj.ID
	}
	return ""
}
