// Package pgstore implements store.RemoteStore on a Postgres table, with
// change notifications delivered over LISTEN/NOTIFY.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/sqlutil"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

// DefaultNotifyChannel is the channel Set notifies with the changed path.
const DefaultNotifyChannel = "room_documents_changed"

type Config struct {
	DatabaseURL   string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string
	PingInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		NotifyChannel: DefaultNotifyChannel,
		PingInterval:  90 * time.Second,
	}
}

type documentReader interface {
	GetDocument(ctx context.Context, path string) (Document, error)
}

type subscriber struct {
	values  *store.OrderedHandler
	onError store.ErrorHandler
}

// Store keeps one row per document path. Set upserts the row and notifies
// the path in the same transaction; Run fans notifications out to local
// subscribers, re-reading the row so every delivery carries the latest value.
type Store struct {
	db       *sql.DB
	reader   documentReader
	listener *pq.Listener
	notify   <-chan *pq.Notification
	cfg      Config

	mu     sync.Mutex
	subs   map[string]map[int]subscriber
	nextID int
}

// Open connects the LISTEN side, creates the table if needed and returns a
// store. Call Run to start delivering notifications.
func Open(ctx context.Context, db *sql.DB, cfg Config) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w: %w", store.ErrUnavailable, err)
	}
	if err := NewQueries(db).CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to create room_documents: %w", err)
	}

	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := listen(l, cfg.NotifyChannel); err != nil {
		return nil, err
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for document changes")

	s := newStore(db, NewQueries(db), l.Notify, cfg)
	s.listener = l
	return s, nil
}

type channelListener interface {
	Listen(channel string) error
	Close() error
}

// listen subscribes l to channel, closing l if that fails.
func listen(l channelListener, channel string) error {
	if err := l.Listen(channel); err != nil {
		if closeErr := l.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close listener")
		}
		return fmt.Errorf("failed to listen to channel: %w", err)
	}
	return nil
}

func newStore(db *sql.DB, reader documentReader, notify <-chan *pq.Notification, cfg Config) *Store {
	return &Store{
		db:     db,
		reader: reader,
		notify: notify,
		cfg:    cfg,
		subs:   make(map[string]map[int]subscriber),
	}
}

// Run dispatches notifications until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	var ping <-chan time.Time
	if s.listener != nil && s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("document listener shutting down")
			return s.Close()
		case note, ok := <-s.notify:
			if !ok {
				return nil
			}
			s.handleNotification(ctx, note)
		case <-ping:
			if err := s.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (s *Store) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleNotification delivers the changed path. A nil notification means the
// listener reconnected and may have missed events, so every subscribed path
// is refreshed.
func (s *Store) handleNotification(ctx context.Context, note *pq.Notification) {
	if note == nil {
		for _, path := range s.subscribedPaths() {
			s.refresh(ctx, path)
		}
		return
	}
	s.refresh(ctx, note.Extra)
}

func (s *Store) refresh(ctx context.Context, path string) {
	targets := s.subscribers(path)
	if len(targets) == 0 {
		return
	}

	raw, exists, version, err := s.load(ctx, path)
	for _, sub := range targets {
		if err != nil {
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.values.Deliver(raw, exists, version)
	}
}

func (s *Store) Subscribe(ctx context.Context, path string, onValue store.ValueHandler, onError store.ErrorHandler) (store.Subscription, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]subscriber)
	}
	sub := subscriber{values: store.NewOrderedHandler(onValue), onError: onError}
	s.subs[path][id] = sub
	s.mu.Unlock()

	unsubscribe := store.SubscriptionFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[path], id)
		if len(s.subs[path]) == 0 {
			delete(s.subs, path)
		}
	})

	// A notification handled while this read is in flight may already have
	// delivered a newer row; the handler drops this one if so.
	raw, exists, version, err := s.load(ctx, path)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.values.Deliver(raw, exists, version)
	return unsubscribe, nil
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	raw, exists, _, err := s.load(ctx, path)
	return raw, exists, err
}

// load reads a document along with its version, the row's updated_at in
// nanoseconds. A missing row has version 0.
func (s *Store) load(ctx context.Context, path string) (json.RawMessage, bool, uint64, error) {
	doc, err := s.reader.GetDocument(ctx, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, 0, nil
	}
	if err != nil {
		return nil, false, 0, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	raw, ok := sqlutil.FromNullRawMessage(doc.Value)
	return raw, ok, uint64(doc.UpdatedAt.UnixNano()), nil
}

func (s *Store) Set(ctx context.Context, path string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("set %s: invalid JSON document", path)
	}
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) *Queries { return NewQueries(tx) }, func(q *Queries) error {
		if err := q.UpsertDocument(ctx, path, raw); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}
		return q.NotifyDocument(ctx, s.cfg.NotifyChannel, path)
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *Store) subscribers(path string) []subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]subscriber, 0, len(s.subs[path]))
	for _, sub := range s.subs[path] {
		out = append(out, sub)
	}
	return out
}

func (s *Store) subscribedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.subs))
	for p := range s.subs {
		paths = append(paths, p)
	}
	return paths
}
