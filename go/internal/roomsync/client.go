// Package roomsync mirrors the four shared slices of a room (players,
// matches, timer, messages) between a remote document store and local state.
//
// Each slice carries two flags. hydrated is set once the store has delivered
// a value for the slice; until then local changes are never written, so a
// fresh client cannot overwrite a room with its empty defaults.
// echoSuppress is set whenever a value arrives from the store and consumed by
// the following write-back check, so applying a remote value does not write
// the same value straight back.
package roomsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

var (
	// ErrClosed is returned by mutations on a closed client.
	ErrClosed = errors.New("room sync client closed")
	// ErrNotReady is returned by callers that refuse to mutate a room
	// before all slices are hydrated.
	ErrNotReady = errors.New("room is still syncing")
)

const (
	defaultWriteBuffer  = 64
	defaultWriteTimeout = 10 * time.Second
)

// Origin tells listeners where a change came from.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Change describes one slice update.
type Change struct {
	Slice  models.Slice
	Origin Origin
}

// Listener is called after a slice changes. It runs outside the client lock
// and may read from or mutate the client.
type Listener func(Change)

type Options struct {
	Clock    clockwork.Clock
	Notifier Notifier
	Metrics  MetricsCollector
	// WriteBuffer is the capacity of the ordered write queue.
	WriteBuffer  int
	WriteTimeout time.Duration
	// SyncWrites performs each write on the calling goroutine instead of the
	// queue goroutine. Writes still happen outside the client lock.
	SyncWrites bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Notifier == nil {
		o.Notifier = LogNotifier{}
	}
	if o.Metrics == nil {
		o.Metrics = &NoOpMetricsCollector{}
	}
	if o.WriteBuffer <= 0 {
		o.WriteBuffer = defaultWriteBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	return o
}

type syncFlags struct {
	hydrated     bool
	echoSuppress bool
}

type writeJob struct {
	slice models.Slice
	path  string
	raw   json.RawMessage
	seq   uint64
}

// Client is the sync engine for a single room. Create one per room with
// Open and Close it when leaving the room.
type Client struct {
	code  string
	store store.RemoteStore
	opts  Options

	mu        sync.Mutex
	players   []models.Player
	matches   []models.Match
	timer     models.TimerState
	messages  []models.BroadcastMessage
	flags     map[models.Slice]*syncFlags
	closed    bool
	readyOnce sync.Once
	ready     chan struct{}
	subs      []store.Subscription
	listeners []registeredListener
	nextID    int

	queue   chan writeJob
	pending pendingWrites
	stop    chan struct{}

	// seq orders jobs as they are built under mu. written holds the newest
	// seq handed to the store per slice; an older job that reaches the writer
	// after it is dropped.
	seq     uint64
	writeMu sync.Mutex
	written map[models.Slice]uint64
}

type registeredListener struct {
	id int
	fn Listener
}

// Open creates a client for the room and subscribes to its four slices.
// With a nil store or an empty code the client stays permanently
// unhydrated, which callers present as "syncing".
func Open(ctx context.Context, code string, st store.RemoteStore, opts Options) *Client {
	c := &Client{
		code:     code,
		store:    st,
		opts:     opts.withDefaults(),
		players:  []models.Player{},
		matches:  []models.Match{},
		timer:    models.DefaultTimerState(),
		messages: []models.BroadcastMessage{},
		flags:    make(map[models.Slice]*syncFlags, len(models.AllSlices)),
		written:  make(map[models.Slice]uint64, len(models.AllSlices)),
		ready:    make(chan struct{}),
		stop:     make(chan struct{}),
	}
	for _, s := range models.AllSlices {
		c.flags[s] = &syncFlags{}
	}

	if !c.opts.SyncWrites {
		c.queue = make(chan writeJob, c.opts.WriteBuffer)
		go c.writeLoop()
	}

	if st == nil || code == "" {
		log.Warn().Str("room", code).Msg("Room sync disabled, store unavailable")
		return c
	}

	for _, s := range models.AllSlices {
		sub, err := st.Subscribe(ctx, models.SlicePath(code, s),
			func(raw json.RawMessage, exists bool) { c.applyRemote(s, raw, exists) },
			func(err error) { c.subscriptionError(s, err) },
		)
		if err != nil {
			c.subscriptionError(s, err)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			sub.Unsubscribe()
			continue
		}
		c.subs = append(c.subs, sub)
		c.mu.Unlock()
	}

	log.Debug().Str("room", code).Msg("Room sync subscribed")
	return c
}

// Code returns the room code the client is bound to.
func (c *Client) Code() string { return c.code }

// Ready reports whether all four slices have been hydrated.
func (c *Client) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the client is ready or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hydrated reports whether the store has delivered a value for s.
func (c *Client) Hydrated(s models.Slice) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[s].hydrated
}

// OnChange registers l and returns a function that removes it.
func (c *Client) OnChange(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, registeredListener{id: id, fn: l})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = slices.DeleteFunc(c.listeners, func(r registeredListener) bool { return r.id == id })
	}
}

func (c *Client) Players() []models.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.players)
}

func (c *Client) Matches() []models.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.matches)
}

func (c *Client) Timer() models.TimerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer
}

func (c *Client) Messages() []models.BroadcastMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Snapshot returns a consistent copy of all four slices.
func (c *Client) Snapshot() models.RoomSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.RoomSnapshot{
		Code:     c.code,
		Ready:    c.Ready(),
		Players:  slices.Clone(c.players),
		Matches:  slices.Clone(c.matches),
		Timer:    c.timer,
		Messages: slices.Clone(c.messages),
	}
}

func (c *Client) SetPlayers(players []models.Player) error {
	return c.UpdatePlayers(func([]models.Player) ([]models.Player, error) { return players, nil })
}

func (c *Client) SetMatches(matches []models.Match) error {
	return c.UpdateMatches(func([]models.Match) ([]models.Match, error) { return matches, nil })
}

func (c *Client) SetTimer(timer models.TimerState) error {
	return c.UpdateTimer(func(models.TimerState) (models.TimerState, error) { return timer, nil })
}

func (c *Client) SetMessages(messages []models.BroadcastMessage) error {
	return c.UpdateMessages(func([]models.BroadcastMessage) ([]models.BroadcastMessage, error) { return messages, nil })
}

// UpdatePlayers replaces the roster with fn applied to the current roster.
// fn runs under the client lock and must not call back into the client.
// If fn returns an error nothing changes.
func (c *Client) UpdatePlayers(fn func([]models.Player) ([]models.Player, error)) error {
	return update(c, models.SlicePlayers, &c.players, slices.Clone[[]models.Player], fn)
}

func (c *Client) UpdateMatches(fn func([]models.Match) ([]models.Match, error)) error {
	return update(c, models.SliceMatches, &c.matches, slices.Clone[[]models.Match], fn)
}

func (c *Client) UpdateTimer(fn func(models.TimerState) (models.TimerState, error)) error {
	return update(c, models.SliceTimer, &c.timer, func(t models.TimerState) models.TimerState { return t }, fn)
}

func (c *Client) UpdateMessages(fn func([]models.BroadcastMessage) ([]models.BroadcastMessage, error)) error {
	return update(c, models.SliceMessages, &c.messages, slices.Clone[[]models.BroadcastMessage], fn)
}

func update[T any](c *Client, s models.Slice, field *T, clone func(T) T, fn func(T) (T, error)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, err := fn(clone(*field))
	if err != nil {
		c.mu.Unlock()
		return err
	}
	*field = next
	c.normalizeLocked()
	job, ok := c.writeBackLocked(s)
	c.mu.Unlock()

	if ok {
		c.dispatch(job)
	}
	c.emit(Change{Slice: s, Origin: OriginLocal})
	return nil
}

// Flush waits until every queued write has completed.
func (c *Client) Flush(ctx context.Context) error {
	select {
	case <-c.pending.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes from all slices. Queued writes still run, but their
// failures are no longer reported.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.listeners = nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}

	go func() {
		<-c.pending.idle()
		close(c.stop)
	}()
	log.Debug().Str("room", c.code).Msg("Room sync closed")
}

func (c *Client) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// applyRemote handles a value delivered by the store. A missing value
// resets the slice to its default.
func (c *Client) applyRemote(s models.Slice, raw json.RawMessage, exists bool) {
	value, err := decodeSlice(s, raw, exists)
	if err != nil {
		c.opts.Metrics.RecordSubscriptionError(string(s))
		c.notify(Notice{
			Kind:    NoticeError,
			Room:    c.code,
			Slice:   s,
			Message: fmt.Sprintf("Could not read %s from the room", s),
			Err:     err,
		})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	f := c.flags[s]
	f.hydrated = true
	f.echoSuppress = true
	c.assignLocked(s, value)
	job, ok := c.writeBackLocked(s)
	allHydrated := c.allHydratedLocked()
	c.mu.Unlock()

	c.opts.Metrics.RecordRemoteUpdate(string(s))
	if ok {
		c.dispatch(job)
	}
	if allHydrated {
		c.readyOnce.Do(func() {
			close(c.ready)
			log.Debug().Str("room", c.code).Msg("Room sync ready")
		})
	}
	c.emit(Change{Slice: s, Origin: OriginRemote})
}

func (c *Client) subscriptionError(s models.Slice, err error) {
	c.opts.Metrics.RecordSubscriptionError(string(s))
	c.notify(Notice{
		Kind:    NoticeError,
		Room:    c.code,
		Slice:   s,
		Message: fmt.Sprintf("Lost sync of %s", s),
		Err:     err,
	})
}

// writeBackLocked applies the write-back rule for s and reports whether a
// write should be issued.
func (c *Client) writeBackLocked(s models.Slice) (writeJob, bool) {
	f := c.flags[s]
	if !f.hydrated {
		c.opts.Metrics.RecordWriteSkipped(string(s))
		return writeJob{}, false
	}
	if f.echoSuppress {
		f.echoSuppress = false
		c.opts.Metrics.RecordEchoSuppressed(string(s))
		return writeJob{}, false
	}

	raw, err := c.encodeLocked(s)
	if err != nil {
		log.Error().Err(err).Str("room", c.code).Str("slice", string(s)).Msg("Failed to encode slice")
		return writeJob{}, false
	}
	c.pending.add()
	c.seq++
	return writeJob{slice: s, path: models.SlicePath(c.code, s), raw: raw, seq: c.seq}, true
}

func (c *Client) dispatch(job writeJob) {
	if c.opts.SyncWrites {
		c.write(job)
		return
	}
	c.queue <- job
}

func (c *Client) writeLoop() {
	for {
		select {
		case job := <-c.queue:
			c.write(job)
		case <-c.stop:
			return
		}
	}
}

func (c *Client) write(job writeJob) {
	defer c.pending.done()

	c.writeMu.Lock()
	if job.seq < c.written[job.slice] {
		c.writeMu.Unlock()
		log.Debug().Str("room", c.code).Str("slice", string(job.slice)).Msg("Dropped superseded write")
		return
	}
	c.written[job.slice] = job.seq
	c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
	defer cancel()

	start := c.opts.Clock.Now()
	err := c.store.Set(ctx, job.path, job.raw)
	c.opts.Metrics.RecordWrite(string(job.slice), err == nil, c.opts.Clock.Since(start))

	if err != nil {
		c.notify(Notice{
			Kind:    NoticeError,
			Room:    c.code,
			Slice:   job.slice,
			Message: fmt.Sprintf("Failed to save %s", job.slice),
			Err:     err,
		})
	}
}

// notify drops notices once the client is closed so a late failure from a
// previous room is never shown in the next one.
func (c *Client) notify(n Notice) {
	if !c.active() {
		return
	}
	c.opts.Notifier.Notify(n)
}

func (c *Client) emit(change Change) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.fn(change)
	}
}

func (c *Client) allHydratedLocked() bool {
	for _, f := range c.flags {
		if !f.hydrated {
			return false
		}
	}
	return true
}

// pendingWrites counts writes that have been accepted but not completed.
type pendingWrites struct {
	mu      sync.Mutex
	n       int
	waiters []chan struct{}
}

func (p *pendingWrites) add() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *pendingWrites) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n--
	if p.n == 0 {
		for _, w := range p.waiters {
			close(w)
		}
		p.waiters = nil
	}
}

// idle returns a channel closed once no writes are pending.
func (p *pendingWrites) idle() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	if p.n == 0 {
		close(ch)
		return ch
	}
	p.waiters = append(p.waiters, ch)
	return ch
}
