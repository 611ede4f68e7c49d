package claim

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
)

// Preferences persists the selected player per room on the device.
type Preferences interface {
	SelectedPlayer(code string) (string, error)
	SetSelectedPlayer(code, playerID string) error
	ClearSelectedPlayer(code string) error
}

// Coordinator tracks the local contestant's selection in one room.
//
// It never re-asserts a claim: if the roster shows the selected player gone
// or held by another device, the local selection is dropped and the user has
// to pick again.
type Coordinator struct {
	client   *roomsync.Client
	identity identity.Provider
	prefs    Preferences
	clock    clockwork.Clock

	mu       sync.Mutex
	selected string
	onLost   func(playerID string)

	stopListening func()
}

func NewCoordinator(client *roomsync.Client, id identity.Provider, prefs Preferences, clock clockwork.Clock) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Coordinator{
		client:   client,
		identity: id,
		prefs:    prefs,
		clock:    clock,
	}

	selected, err := prefs.SelectedPlayer(client.Code())
	if err != nil {
		log.Warn().Err(err).Str("room", client.Code()).Msg("Failed to load selected player")
	}
	c.selected = selected

	c.stopListening = client.OnChange(func(ch roomsync.Change) {
		if ch.Slice == models.SlicePlayers {
			c.reconcile()
		}
	})
	c.reconcile()
	return c
}

// OnLost registers fn to run when the local selection is dropped because of
// a remote change.
func (c *Coordinator) OnLost(fn func(playerID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = fn
}

// Selected returns the locally selected player id, or "".
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select claims playerID for this device.
func (c *Coordinator) Select(playerID string) error {
	if !c.client.Ready() {
		return roomsync.ErrNotReady
	}

	clientID := c.identity.ClientID()
	err := c.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		return Claim(players, playerID, clientID, c.clock.Now())
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.selected = playerID
	c.mu.Unlock()

	if err := c.prefs.SetSelectedPlayer(c.client.Code(), playerID); err != nil {
		log.Warn().Err(err).Str("room", c.client.Code()).Msg("Failed to persist selected player")
	}
	log.Info().Str("room", c.client.Code()).Str("player_id", playerID).Msg("Player selected")
	return nil
}

// Release gives up the current selection.
func (c *Coordinator) Release() error {
	if !c.client.Ready() {
		return roomsync.ErrNotReady
	}

	c.mu.Lock()
	playerID := c.selected
	c.mu.Unlock()
	if playerID == "" {
		return nil
	}

	clientID := c.identity.ClientID()
	err := c.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		return Release(players, playerID, clientID), nil
	})
	if err != nil {
		return err
	}
	c.clear()
	return nil
}

// Close stops watching the roster.
func (c *Coordinator) Close() {
	c.stopListening()
}

func (c *Coordinator) reconcile() {
	if !c.client.Hydrated(models.SlicePlayers) {
		return
	}

	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if selected == "" {
		return
	}

	players := c.client.Players()
	idx := models.FindPlayer(players, selected)
	lost := idx < 0 || State(players[idx], c.identity.ClientID()) == ClaimedByOther
	if !lost {
		return
	}

	log.Info().
		Str("room", c.client.Code()).
		Str("player_id", selected).
		Msg("Selected player removed or claimed by another device")

	c.mu.Lock()
	if c.selected != selected {
		c.mu.Unlock()
		return
	}
	onLost := c.onLost
	c.mu.Unlock()

	c.clear()
	if onLost != nil {
		onLost(selected)
	}
}

func (c *Coordinator) clear() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()

	if err := c.prefs.ClearSelectedPlayer(c.client.Code()); err != nil {
		log.Warn().Err(err).Str("room", c.client.Code()).Msg("Failed to clear selected player")
	}
}
