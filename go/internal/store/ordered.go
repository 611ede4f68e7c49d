package store

import (
	"encoding/json"
	"sync"
)

// OrderedHandler wraps a ValueHandler so deliveries from several goroutines
// reach it one at a time and never go backwards. Each delivery carries a
// version; one older than the newest accepted version is dropped. When a
// delivery arrives while another is running, only the newest pending value
// is handed over once the running one returns, so a handler that writes to
// the store from inside the callback does not deadlock.
type OrderedHandler struct {
	onValue ValueHandler

	mu       sync.Mutex
	accepted bool
	version  uint64
	busy     bool
	next     *pendingValue
}

type pendingValue struct {
	raw    json.RawMessage
	exists bool
}

func NewOrderedHandler(onValue ValueHandler) *OrderedHandler {
	return &OrderedHandler{onValue: onValue}
}

// Deliver hands raw to the handler unless a newer version was already
// accepted.
func (h *OrderedHandler) Deliver(raw json.RawMessage, exists bool, version uint64) {
	h.mu.Lock()
	if h.accepted && version < h.version {
		h.mu.Unlock()
		return
	}
	h.accepted = true
	h.version = version
	h.next = &pendingValue{raw: raw, exists: exists}
	if h.busy {
		h.mu.Unlock()
		return
	}

	h.busy = true
	for h.next != nil {
		v := h.next
		h.next = nil
		h.mu.Unlock()
		h.onValue(v.raw, v.exists)
		h.mu.Lock()
	}
	h.busy = false
	h.mu.Unlock()
}
