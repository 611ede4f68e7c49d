package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/claim"
	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

func joinAs(t *testing.T, mem *store.Memory, clock clockwork.Clock, device string) (*Contestant, *identity.Device) {
	t.Helper()
	client := roomsync.Open(context.Background(), code, mem, roomsync.Options{SyncWrites: true, Clock: clock})
	t.Cleanup(client.Close)
	require.True(t, client.Ready())

	prefs := identity.NewDevice(identity.NewMemoryStore())
	c := NewContestant(client, identity.StaticProvider(device), prefs, clock)
	t.Cleanup(c.Close)
	return c, prefs
}

func TestContestantSeesOnlyMessagesForThem(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada", "Grace")

	ada, _ := joinAs(t, f.mem, f.clock, "device-a")
	lurker, _ := joinAs(t, f.mem, f.clock, "device-b")
	require.NoError(t, ada.SelectPlayer(players[0].ID))

	var shown []*models.BroadcastMessage
	ada.OnMessage(func(m *models.BroadcastMessage) { shown = append(shown, m) })

	_, err := f.scorer.SendBroadcast("Ada to table 3", []string{players[0].ID})
	require.NoError(t, err)

	msg, ok := ada.VisibleMessage()
	require.True(t, ok)
	assert.Equal(t, "Ada to table 3", msg.Text)
	_, ok = lurker.VisibleMessage()
	assert.False(t, ok, "a contestant without a player only sees messages for everyone")

	_, err = f.scorer.SendBroadcast("Grace to table 1", []string{players[1].ID})
	require.NoError(t, err)
	msg, _ = ada.VisibleMessage()
	assert.Equal(t, "Ada to table 3", msg.Text, "messages for others never replace the overlay")

	_, err = f.scorer.SendBroadcast("Lunch break", []string{models.TargetAll})
	require.NoError(t, err)
	msg, ok = lurker.VisibleMessage()
	require.True(t, ok)
	assert.Equal(t, "Lunch break", msg.Text)

	require.Len(t, shown, 2)
	assert.Equal(t, "Lunch break", shown[1].Text)
}

func TestContestantMessageAutoDismisses(t *testing.T) {
	f := newScorerFixture(t)
	c, _ := joinAs(t, f.mem, f.clock, "device-a")

	_, err := f.scorer.SendBroadcast("Round 2 starts", []string{models.TargetAll})
	require.NoError(t, err)
	_, ok := c.VisibleMessage()
	require.True(t, ok)

	f.clock.Advance(8 * time.Second)
	require.Eventually(t, func() bool {
		_, ok := c.VisibleMessage()
		return !ok
	}, time.Second, 5*time.Millisecond)

	// Unrelated roster edits must not bring a dismissed message back.
	_, err = f.scorer.AddPlayer("Linus")
	require.NoError(t, err)
	_, ok = c.VisibleMessage()
	assert.False(t, ok)
}

func TestContestantDismissMessage(t *testing.T) {
	f := newScorerFixture(t)
	c, _ := joinAs(t, f.mem, f.clock, "device-a")

	_, err := f.scorer.SendBroadcast("hello", []string{models.TargetAll})
	require.NoError(t, err)
	c.DismissMessage()

	_, ok := c.VisibleMessage()
	assert.False(t, ok)
}

func TestContestantLosesDeletedPlayer(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada")
	c, prefs := joinAs(t, f.mem, f.clock, "device-a")

	var lost string
	c.OnSelectionLost(func(id string) { lost = id })
	require.NoError(t, c.SelectPlayer(players[0].ID))

	current, ok := c.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, "device-a", current.ClaimedBy())
	saved, err := prefs.SelectedPlayer(code)
	require.NoError(t, err)
	assert.Equal(t, players[0].ID, saved)

	require.NoError(t, f.scorer.DeletePlayer(players[0].ID, AlwaysConfirm))

	assert.Equal(t, players[0].ID, lost)
	_, ok = c.CurrentPlayer()
	assert.False(t, ok)
	saved, err = prefs.SelectedPlayer(code)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestContestantCannotTakeClaimedPlayer(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada")
	first, _ := joinAs(t, f.mem, f.clock, "device-a")
	second, _ := joinAs(t, f.mem, f.clock, "device-b")

	require.NoError(t, first.SelectPlayer(players[0].ID))
	assert.ErrorIs(t, second.SelectPlayer(players[0].ID), claim.ErrClaimedByOther)

	require.NoError(t, first.ReleasePlayer())
	require.NoError(t, second.SelectPlayer(players[0].ID))
	current, ok := second.CurrentPlayer()
	require.True(t, ok)
	assert.Equal(t, "device-b", current.ClaimedBy())
}

func TestContestantTimerAndStandings(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada", "Grace")
	c, _ := joinAs(t, f.mem, f.clock, "device-a")

	require.NoError(t, f.scorer.StartTimer(1))
	f.clock.Advance(15 * time.Second)
	assert.Equal(t, 45, c.TimerRemaining())

	require.NoError(t, f.scorer.AdjustPoints(players[1].ID, 4))
	standings := c.Standings()
	require.Len(t, standings, 2)
	assert.Equal(t, "Grace", standings[0].Name)
	assert.Equal(t, 4, standings[0].Score)
}
