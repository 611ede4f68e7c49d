package room

import (
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/scoreboard/go/internal/broadcast"
	"github.com/mcdev12/scoreboard/go/internal/claim"
	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/stats"
)

// Contestant is a read-mostly view of a room. Its only write is claiming
// or releasing a roster entry.
type Contestant struct {
	client  *roomsync.Client
	claims  *claim.Coordinator
	overlay *broadcast.Overlay
	clock   clockwork.Clock

	stopListening func()
}

func NewContestant(client *roomsync.Client, id identity.Provider, prefs claim.Preferences, clock clockwork.Clock) *Contestant {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Contestant{
		client:  client,
		claims:  claim.NewCoordinator(client, id, prefs, clock),
		overlay: broadcast.NewOverlay(clock),
		clock:   clock,
	}

	c.stopListening = client.OnChange(func(ch roomsync.Change) {
		if ch.Slice == models.SliceMessages || ch.Slice == models.SlicePlayers {
			c.refreshOverlay()
		}
	})
	c.refreshOverlay()
	return c
}

// SelectPlayer claims a roster entry for this device.
func (c *Contestant) SelectPlayer(playerID string) error {
	if err := c.claims.Select(playerID); err != nil {
		return err
	}
	c.refreshOverlay()
	return nil
}

// ReleasePlayer gives up the current roster entry.
func (c *Contestant) ReleasePlayer() error {
	return c.claims.Release()
}

// CurrentPlayer returns the selected player as currently shown in the roster.
func (c *Contestant) CurrentPlayer() (models.Player, bool) {
	id := c.claims.Selected()
	if id == "" {
		return models.Player{}, false
	}
	players := c.client.Players()
	idx := models.FindPlayer(players, id)
	if idx < 0 {
		return models.Player{}, false
	}
	return players[idx], true
}

// OnSelectionLost registers fn to run when another device takes the
// selected player or the scorer deletes it.
func (c *Contestant) OnSelectionLost(fn func(playerID string)) {
	c.claims.OnLost(fn)
}

// OnMessage registers fn to run when the overlay shows (non-nil) or hides
// (nil) a message.
func (c *Contestant) OnMessage(fn func(shown *models.BroadcastMessage)) {
	c.overlay.OnChange(fn)
}

// VisibleMessage returns the message on the overlay.
func (c *Contestant) VisibleMessage() (models.BroadcastMessage, bool) {
	return c.overlay.Current()
}

func (c *Contestant) DismissMessage() {
	c.overlay.Dismiss()
}

// TimerRemaining returns the whole seconds left on the round timer.
func (c *Contestant) TimerRemaining() int {
	return countdown.Remaining(c.client.Timer(), c.clock.Now())
}

// Standings returns the roster ranked by score.
func (c *Contestant) Standings() []models.Player {
	return stats.Rank(c.client.Players())
}

func (c *Contestant) Close() {
	c.stopListening()
	c.claims.Close()
	c.overlay.Stop()
}

func (c *Contestant) refreshOverlay() {
	if !c.client.Hydrated(models.SliceMessages) {
		return
	}
	audience := broadcast.Audience{PlayerID: c.claims.Selected()}
	c.overlay.Update(c.client.Messages(), audience)
}
