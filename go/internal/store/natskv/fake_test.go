package natskv

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// ------------------------
// Fake KeyValue
// ------------------------

type FakeKeyValue struct {
	jetstream.KeyValue // Embed to satisfy interface

	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string][]*FakeKeyWatcher
	putErr   error
	trace    []string
}

func NewFakeKeyValue() *FakeKeyValue {
	return &FakeKeyValue{
		data:     make(map[string][]byte),
		watchers: make(map[string][]*FakeKeyWatcher),
	}
}

func (f *FakeKeyValue) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Put")
	if f.putErr != nil {
		return 0, f.putErr
	}
	f.data[key] = value
	for _, w := range f.watchers[key] {
		w.send(&FakeKeyValueEntry{key: key, value: value, op: jetstream.KeyValuePut})
	}
	return uint64(len(f.trace)), nil
}

func (f *FakeKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Get")
	val, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &FakeKeyValueEntry{value: val, key: key, op: jetstream.KeyValuePut}, nil
}

func (f *FakeKeyValue) Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Delete")
	delete(f.data, key)
	for _, w := range f.watchers[key] {
		w.send(&FakeKeyValueEntry{key: key, op: jetstream.KeyValueDelete})
	}
	return nil
}

func (f *FakeKeyValue) Watch(ctx context.Context, key string, opts ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Watch")

	w := &FakeKeyWatcher{updates: make(chan jetstream.KeyValueEntry, 16)}
	if val, ok := f.data[key]; ok {
		w.send(&FakeKeyValueEntry{key: key, value: val, op: jetstream.KeyValuePut})
	}
	w.send(nil)
	f.watchers[key] = append(f.watchers[key], w)
	return w, nil
}

type FakeKeyWatcher struct {
	jetstream.KeyWatcher

	mu      sync.Mutex
	updates chan jetstream.KeyValueEntry
	stopped bool
}

func (w *FakeKeyWatcher) Updates() <-chan jetstream.KeyValueEntry { return w.updates }

func (w *FakeKeyWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.stopped = true
		close(w.updates)
	}
	return nil
}

func (w *FakeKeyWatcher) send(e jetstream.KeyValueEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.updates <- e
	}
}

type FakeKeyValueEntry struct {
	jetstream.KeyValueEntry
	value []byte
	key   string
	op    jetstream.KeyValueOp
}

func (f *FakeKeyValueEntry) Value() []byte                   { return f.value }
func (f *FakeKeyValueEntry) Key() string                     { return f.key }
func (f *FakeKeyValueEntry) Operation() jetstream.KeyValueOp { return f.op }
