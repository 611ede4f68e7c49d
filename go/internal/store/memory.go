package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process RemoteStore. Notifications are delivered
// synchronously from the goroutine that calls Set, unless another delivery
// to the same subscriber is already running.
type Memory struct {
	mu        sync.Mutex
	values    map[string]json.RawMessage
	versions  map[string]uint64
	listeners map[string]map[int]*OrderedHandler
	nextID    int
}

func NewMemory() *Memory {
	return &Memory{
		values:    make(map[string]json.RawMessage),
		versions:  make(map[string]uint64),
		listeners: make(map[string]map[int]*OrderedHandler),
	}
}

func (m *Memory) Subscribe(ctx context.Context, path string, onValue ValueHandler, onError ErrorHandler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	l := NewOrderedHandler(onValue)
	if m.listeners[path] == nil {
		m.listeners[path] = make(map[int]*OrderedHandler)
	}
	m.listeners[path][id] = l
	raw, exists := m.values[path]
	version := m.versions[path]
	m.mu.Unlock()

	l.Deliver(clone(raw), exists, version)

	return SubscriptionFunc(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[path], id)
		if len(m.listeners[path]) == 0 {
			delete(m.listeners, path)
		}
	}), nil
}

func (m *Memory) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[path]
	return clone(raw), ok, nil
}

func (m *Memory) Set(ctx context.Context, path string, raw json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	compacted, err := compact(raw)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.values[path] = compacted
	m.versions[path]++
	version := m.versions[path]
	targets := make([]*OrderedHandler, 0, len(m.listeners[path]))
	for _, l := range m.listeners[path] {
		targets = append(targets, l)
	}
	m.mu.Unlock()

	for _, l := range targets {
		l.Deliver(clone(compacted), true, version)
	}
	return nil
}

// Paths returns every path holding a value.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.values))
	for p := range m.values {
		paths = append(paths, p)
	}
	return paths
}

func compact(raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
