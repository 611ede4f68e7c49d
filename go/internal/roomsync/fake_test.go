package roomsync

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mcdev12/scoreboard/go/internal/store"
)

type setCall struct {
	path string
	raw  string
}

// fakeStore records writes and only delivers values when the test asks it
// to, or on Set when echo is enabled.
type fakeStore struct {
	mu           sync.Mutex
	handlers     map[string]store.ValueHandler
	errHandlers  map[string]store.ErrorHandler
	sets         []setCall
	setErr       error
	subscribeErr error
	echo         bool
	unsubscribed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		handlers:    make(map[string]store.ValueHandler),
		errHandlers: make(map[string]store.ErrorHandler),
	}
}

func (f *fakeStore) Subscribe(ctx context.Context, path string, onValue store.ValueHandler, onError store.ErrorHandler) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.handlers[path] = onValue
	f.errHandlers[path] = onError
	return store.SubscriptionFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = append(f.unsubscribed, path)
	}), nil
}

func (f *fakeStore) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (f *fakeStore) Set(ctx context.Context, path string, raw json.RawMessage) error {
	f.mu.Lock()
	f.sets = append(f.sets, setCall{path: path, raw: string(raw)})
	err := f.setErr
	h := f.handlers[path]
	echo := f.echo
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if echo && h != nil {
		h(raw, true)
	}
	return nil
}

func (f *fakeStore) deliver(path, raw string) {
	f.mu.Lock()
	h := f.handlers[path]
	f.mu.Unlock()
	h(json.RawMessage(raw), true)
}

func (f *fakeStore) deliverMissing(path string) {
	f.mu.Lock()
	h := f.handlers[path]
	f.mu.Unlock()
	h(nil, false)
}

func (f *fakeStore) fail(path string, err error) {
	f.mu.Lock()
	h := f.errHandlers[path]
	f.mu.Unlock()
	h(err)
}

func (f *fakeStore) writes() []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]setCall, len(f.sets))
	copy(out, f.sets)
	return out
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
