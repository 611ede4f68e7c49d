package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

func TestOverlayAutoDismissesAndNeverRedisplays(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	o := NewOverlay(clock)
	defer o.Stop()

	var mu sync.Mutex
	var events []string
	o.OnChange(func(m *models.BroadcastMessage) {
		mu.Lock()
		defer mu.Unlock()
		if m == nil {
			events = append(events, "hide")
			return
		}
		events = append(events, "show "+m.ID)
	})

	messages := []models.BroadcastMessage{msg("m1", []string{models.TargetAll}, 0)}
	o.Update(messages, Audience{})

	cur, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, "m1", cur.ID)

	clock.Advance(AutoDismissAfter)
	require.Eventually(t, func() bool {
		_, ok := o.Current()
		return !ok
	}, time.Second, time.Millisecond)

	o.Update(messages, Audience{})
	_, ok = o.Current()
	assert.False(t, ok, "dismissed message must not come back")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"show m1", "hide"}, events)
}

func TestOverlayManualDismiss(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	o := NewOverlay(clock)
	defer o.Stop()

	messages := []models.BroadcastMessage{msg("m1", []string{"p7"}, 0)}
	o.Update(messages, Audience{PlayerID: "p7"})
	o.Dismiss()

	_, ok := o.Current()
	assert.False(t, ok)

	o.Update(messages, Audience{PlayerID: "p7"})
	_, ok = o.Current()
	assert.False(t, ok)
}

func TestOverlayReplacesWithNewerMessage(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	o := NewOverlay(clock)
	defer o.Stop()

	messages := []models.BroadcastMessage{msg("m1", nil, 0)}
	o.Update(messages, Audience{})

	clock.Advance(5 * time.Second)
	messages = append(messages, models.BroadcastMessage{ID: "m2", Timestamp: clock.Now().UnixMilli()})
	o.Update(messages, Audience{})

	cur, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, "m2", cur.ID)

	// The first timer was cancelled, so m2 survives past m1's deadline.
	clock.Advance(4 * time.Second)
	time.Sleep(10 * time.Millisecond)
	cur, ok = o.Current()
	require.True(t, ok)
	assert.Equal(t, "m2", cur.ID)
}

func TestOverlayIgnoresStaleAndUntargeted(t *testing.T) {
	o := NewOverlay(clockwork.NewFakeClockAt(now))
	defer o.Stop()

	o.Update([]models.BroadcastMessage{msg("old", nil, 20*time.Second)}, Audience{})
	_, ok := o.Current()
	assert.False(t, ok)

	o.Update([]models.BroadcastMessage{msg("p9", []string{"p9"}, 0)}, Audience{PlayerID: "p7"})
	_, ok = o.Current()
	assert.False(t, ok)
}
