package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/room"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/stats"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

// Broadcaster delivers room events to spectators.
type Broadcaster interface {
	BroadcastToRoom(room string, event *RoomEvent)
}

// WatcherConfig configures a RoomWatcher.
type WatcherConfig struct {
	// StateTimeout bounds hydration of a room nobody is watching when its
	// state is requested over REST or RPC.
	StateTimeout time.Duration
	Sync         roomsync.Options
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{StateTimeout: 5 * time.Second}
}

// RoomWatcher keeps one read-only sync client per room that has spectators
// and relays its slice changes as room events. It never writes: no local
// edit is ever made on its clients.
type RoomWatcher struct {
	store   store.RemoteStore
	out     Broadcaster
	clock   clockwork.Clock
	config  WatcherConfig
	metrics *Metrics

	mu    sync.Mutex
	rooms map[string]*watchedRoom
}

type watchedRoom struct {
	client *roomsync.Client
	refs   int
	stop   func()
}

func NewRoomWatcher(st store.RemoteStore, out Broadcaster, clock clockwork.Clock, config WatcherConfig, metrics *Metrics) *RoomWatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Sync.Clock == nil {
		config.Sync.Clock = clock
	}
	return &RoomWatcher{
		store:   st,
		out:     out,
		clock:   clock,
		config:  config,
		metrics: metrics,
		rooms:   make(map[string]*watchedRoom),
	}
}

// Acquire starts watching code, or adds a reference to an existing watch.
// The sync client is opened without holding the watcher lock; when two
// callers race to open the same room, the later one closes its client and
// joins the first watch.
func (w *RoomWatcher) Acquire(code string) {
	if w.addRef(code) {
		return
	}

	client := roomsync.Open(context.Background(), code, w.store, w.config.Sync)
	stop := client.OnChange(func(ch roomsync.Change) {
		w.relay(client, ch)
	})

	w.mu.Lock()
	if r, ok := w.rooms[code]; ok {
		r.refs++
		w.mu.Unlock()
		stop()
		client.Close()
		return
	}
	w.rooms[code] = &watchedRoom{client: client, refs: 1, stop: stop}
	w.mu.Unlock()

	w.metrics.roomWatched()
	log.Info().Str("room", code).Msg("Watching room")
}

func (w *RoomWatcher) addRef(code string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rooms[code]
	if ok {
		r.refs++
	}
	return ok
}

// Release drops a reference and stops watching when none are left.
func (w *RoomWatcher) Release(code string) {
	w.mu.Lock()
	r, ok := w.rooms[code]
	if !ok {
		w.mu.Unlock()
		return
	}
	r.refs--
	if r.refs > 0 {
		w.mu.Unlock()
		return
	}
	delete(w.rooms, code)
	w.mu.Unlock()

	r.stop()
	r.client.Close()
	w.metrics.roomReleased()
	log.Info().Str("room", code).Msg("Stopped watching room")
}

// Watching reports whether code has a live watch.
func (w *RoomWatcher) Watching(code string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.rooms[code]
	return ok
}

// Snapshot returns a full-state event for a watched room.
func (w *RoomWatcher) Snapshot(code string) (*RoomEvent, bool) {
	client, ok := w.client(code)
	if !ok {
		return nil, false
	}
	now := w.clock.Now()
	event, err := NewRoomEvent(code, EventTypeSnapshot, NewRoomState(client.Snapshot(), now), now)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to build snapshot")
		return nil, false
	}
	return event, true
}

// State returns the spectator view of a room. Watched rooms answer from
// memory; any other room is hydrated on a short-lived client.
func (w *RoomWatcher) State(ctx context.Context, input string) (RoomState, error) {
	code, err := room.NormalizeCode(input)
	if err != nil {
		return RoomState{}, err
	}
	if client, ok := w.client(code); ok {
		return NewRoomState(client.Snapshot(), w.clock.Now()), nil
	}
	if err := w.Exists(ctx, code); err != nil {
		return RoomState{}, err
	}

	client := roomsync.Open(ctx, code, w.store, w.config.Sync)
	defer client.Close()

	waitCtx, cancel := context.WithTimeout(ctx, w.config.StateTimeout)
	defer cancel()
	if err := client.WaitReady(waitCtx); err != nil {
		return RoomState{}, fmt.Errorf("%w: room %s did not sync: %w", room.ErrConnectionUnavailable, code, err)
	}
	return NewRoomState(client.Snapshot(), w.clock.Now()), nil
}

// Exists checks that code names a created room. Watched rooms exist by
// definition.
func (w *RoomWatcher) Exists(ctx context.Context, code string) error {
	if _, ok := w.client(code); ok {
		return nil
	}
	if w.store == nil {
		return room.ErrConnectionUnavailable
	}

	_, exists, err := w.store.Get(ctx, models.MetaPath(code))
	if err != nil {
		return fmt.Errorf("%w: %w", room.ErrConnectionUnavailable, err)
	}
	if !exists {
		return room.ErrRoomNotFound
	}
	return nil
}

// Close stops every watch.
func (w *RoomWatcher) Close() {
	w.mu.Lock()
	rooms := w.rooms
	w.rooms = make(map[string]*watchedRoom)
	w.mu.Unlock()

	for _, r := range rooms {
		r.stop()
		r.client.Close()
		w.metrics.roomReleased()
	}
}

func (w *RoomWatcher) client(code string) (*roomsync.Client, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rooms[code]
	if !ok {
		return nil, false
	}
	return r.client, true
}

func (w *RoomWatcher) relay(client *roomsync.Client, ch roomsync.Change) {
	if current, ok := w.client(client.Code()); !ok || current != client {
		return
	}
	now := w.clock.Now()

	var payload any
	switch ch.Slice {
	case models.SlicePlayers:
		payload = stats.Rank(client.Players())
	case models.SliceMatches:
		payload = client.Matches()
	case models.SliceTimer:
		payload = timerView(client.Timer(), now)
	case models.SliceMessages:
		payload = messagesView(client.Messages(), now)
	default:
		return
	}

	event, err := NewRoomEvent(client.Code(), SliceEventType(ch.Slice), payload, now)
	if err != nil {
		log.Error().Err(err).Str("room", client.Code()).Msg("failed to build room event")
		return
	}
	w.out.BroadcastToRoom(client.Code(), event)
}
