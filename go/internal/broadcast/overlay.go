package broadcast

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// Overlay holds the message currently shown on a contestant screen.
// A message is shown at most once: after it is dismissed, manually or by
// timeout, it stays hidden even while it remains the latest message.
type Overlay struct {
	clock clockwork.Clock

	mu       sync.Mutex
	current  *models.BroadcastMessage
	lastID   string
	timer    clockwork.Timer
	onChange func(shown *models.BroadcastMessage)
}

func NewOverlay(clock clockwork.Clock) *Overlay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Overlay{clock: clock}
}

// OnChange registers fn to run when a message is shown (non-nil) or hidden (nil).
func (o *Overlay) OnChange(fn func(shown *models.BroadcastMessage)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// Update re-evaluates the log and shows the latest applicable message if it
// has not been shown before.
func (o *Overlay) Update(messages []models.BroadcastMessage, audience Audience) {
	m, ok := Latest(messages, audience, o.clock.Now())
	if !ok {
		return
	}

	o.mu.Lock()
	if m.ID == o.lastID {
		o.mu.Unlock()
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	shown := m
	o.current = &shown
	o.lastID = m.ID
	id := m.ID
	o.timer = o.clock.AfterFunc(AutoDismissAfter, func() { o.dismiss(id) })
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn(&shown)
	}
}

// Current returns the message on screen.
func (o *Overlay) Current() (models.BroadcastMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return models.BroadcastMessage{}, false
	}
	return *o.current, true
}

// Dismiss hides the current message.
func (o *Overlay) Dismiss() {
	o.mu.Lock()
	id := o.lastID
	o.mu.Unlock()
	o.dismiss(id)
}

// Stop cancels the pending auto-dismiss.
func (o *Overlay) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Overlay) dismiss(id string) {
	o.mu.Lock()
	if o.current == nil || o.current.ID != id {
		o.mu.Unlock()
		return
	}
	o.current = nil
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}
