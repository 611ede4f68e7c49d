// Package natskv implements store.RemoteStore on a NATS JetStream
// key-value bucket.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/store"
)

const (
	DefaultBucket = "scoreboard"

	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// Store maps document paths onto bucket keys: rooms/1234/players is stored
// under rooms.1234.players.
type Store struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// New wraps an existing bucket.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Connect dials NATS and opens (or creates) the bucket.
func Connect(ctx context.Context, natsURL, bucket string) (*Store, error) {
	opts := []nats.Option{
		nats.Name("scoreboard"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w: %w", store.ErrUnavailable, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Scoreboard room documents",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open key-value bucket %s: %w", bucket, err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("bucket", bucket).Msg("Connected to NATS key-value store")
	return &Store{nc: nc, kv: kv}, nil
}

// Close drains the connection if the store owns one.
func (s *Store) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}

// Key converts a document path to a bucket key.
func Key(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	entry, err := s.kv.Get(ctx, Key(path))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(entry.Value()), true, nil
}

func (s *Store) Set(ctx context.Context, path string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("set %s: invalid JSON document", path)
	}
	if _, err := s.kv.Put(ctx, Key(path), raw); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// Subscribe watches a single key. The watcher replays the current value
// followed by a nil end-of-initial-values marker; an absent key only yields
// the marker, which is reported as a missing value.
func (s *Store) Subscribe(ctx context.Context, path string, onValue store.ValueHandler, onError store.ErrorHandler) (store.Subscription, error) {
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	watcher, err := s.kv.Watch(watchCtx, Key(path))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		initialDone := false
		sawInitial := false

		for {
			select {
			case <-watchCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					if watchCtx.Err() == nil && onError != nil {
						onError(fmt.Errorf("watch %s closed", path))
					}
					return
				}
				if entry == nil {
					if !initialDone && !sawInitial {
						onValue(nil, false)
					}
					initialDone = true
					continue
				}

				sawInitial = true
				switch entry.Operation() {
				case jetstream.KeyValuePut:
					onValue(json.RawMessage(entry.Value()), true)
				case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
					onValue(nil, false)
				}
			}
		}
	}()

	return store.SubscriptionFunc(func() {
		cancel()
		if err := watcher.Stop(); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Failed to stop watcher")
		}
	}), nil
}
