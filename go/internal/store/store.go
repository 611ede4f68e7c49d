// Package store defines the remote document store contract the room sync
// engine runs on, plus an in-process implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// ValueHandler receives the value at a path. exists is false when nothing is
// stored there, which callers must treat differently from an empty collection.
type ValueHandler func(raw json.RawMessage, exists bool)

// ErrorHandler receives subscription errors. The subscription stays open.
type ErrorHandler func(err error)

// Subscription is a live listener on a single path.
type Subscription interface {
	Unsubscribe()
}

// RemoteStore is a hierarchical JSON document store addressed by paths such
// as rooms/1234/players.
type RemoteStore interface {
	// Subscribe fires onValue with the current value and then on every change,
	// including changes written by the subscriber itself.
	Subscribe(ctx context.Context, path string, onValue ValueHandler, onError ErrorHandler) (Subscription, error)
	// Get reads a path once.
	Get(ctx context.Context, path string) (json.RawMessage, bool, error)
	// Set replaces the value at path.
	Set(ctx context.Context, path string, raw json.RawMessage) error
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }
