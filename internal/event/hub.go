// Package event provides direct callback registration for change messages.
package event

// Subscription identifies a registered callback.
type Subscription uint64

// Hub fans a message out to registered callbacks in registration order.
// It is not safe for concurrent use.
type Hub[M any] struct {
	next     Subscription
	ids      []Subscription
	handlers []func(M)
}

func (h *Hub[M]) Subscribe(fn func(M)) Subscription {
	h.next++
	h.ids = append(h.ids, h.next)
	h.handlers = append(h.handlers, fn)
	return h.next
}

// Unsubscribe removes a callback. Unknown ids are ignored.
func (h *Hub[M]) Unsubscribe(id Subscription) {
	for i, s := range h.ids {
		if s == id {
			h.ids = append(h.ids[:i], h.ids[i+1:]...)
			h.handlers = append(h.handlers[:i], h.handlers[i+1:]...)
			return
		}
	}
}

func (h *Hub[M]) Broadcast(m M) {
	// Callbacks may unsubscribe while we iterate.
	handlers := make([]func(M), len(h.handlers))
	copy(handlers, h.handlers)
	for _, fn := range handlers {
		fn(m)
	}
}

func (h *Hub[M]) Len() int {
	return len(h.handlers)
}
