package room

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/broadcast"
	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/schedule"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

const code = "2468"

func never(string) bool { return false }

type scorerFixture struct {
	mem    *store.Memory
	client *roomsync.Client
	scorer *Scorer
	clock  *clockwork.FakeClock
}

func newScorerFixture(t *testing.T) scorerFixture {
	t.Helper()
	mem := store.NewMemory()
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	client := roomsync.Open(context.Background(), code, mem, roomsync.Options{SyncWrites: true, Clock: clock})
	t.Cleanup(client.Close)
	require.True(t, client.Ready())

	gen := schedule.NewGenerator(rand.New(rand.NewPCG(7, 7)))
	return scorerFixture{mem: mem, client: client, scorer: NewScorer(client, clock, gen), clock: clock}
}

func (f scorerFixture) stored(t *testing.T, s models.Slice, v any) {
	t.Helper()
	raw, ok, err := f.mem.Get(context.Background(), models.SlicePath(code, s))
	require.NoError(t, err)
	require.True(t, ok, "no value at %s", s)
	require.NoError(t, json.Unmarshal(raw, v))
}

func (f scorerFixture) addPlayers(t *testing.T, names ...string) []models.Player {
	t.Helper()
	out := make([]models.Player, 0, len(names))
	for _, n := range names {
		p, err := f.scorer.AddPlayer(n)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestScorerRefusesUntilReady(t *testing.T) {
	client := roomsync.Open(context.Background(), code, nil, roomsync.Options{SyncWrites: true})
	defer client.Close()
	s := NewScorer(client, nil, nil)

	_, err := s.AddPlayer("Ada")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, s.StartTimer(5), ErrNotReady)
	_, err = s.SendBroadcast("hi", []string{models.TargetAll})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, s.ResetRoom(AlwaysConfirm), ErrNotReady)
}

func TestAddAndRenamePlayer(t *testing.T) {
	f := newScorerFixture(t)

	_, err := f.scorer.AddPlayer("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	p, err := f.scorer.AddPlayer(" Ada ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)

	require.NoError(t, f.scorer.RenamePlayer(p.ID, "Ada L."))
	assert.ErrorIs(t, f.scorer.RenamePlayer(p.ID, ""), ErrEmptyName)
	assert.ErrorIs(t, f.scorer.RenamePlayer("ghost", "x"), ErrUnknownPlayer)

	var players []models.Player
	f.stored(t, models.SlicePlayers, &players)
	require.Len(t, players, 1)
	assert.Equal(t, "Ada L.", players[0].Name)
	assert.Zero(t, players[0].Score)
}

func TestSubmitResultRecomputesStandings(t *testing.T) {
	f := newScorerFixture(t)
	f.addPlayers(t, "Ada", "Grace")

	matches, err := f.scorer.GenerateSchedule(schedule.FormatRoundRobin, AlwaysConfirm)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	m := matches[0]

	done, err := f.scorer.SubmitResult(m.ID, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, done.Status)
	assert.Equal(t, m.Opponent(), done.Winner())

	standings := f.scorer.Standings()
	require.Len(t, standings, 2)
	assert.Equal(t, m.Opponent(), standings[0].ID)
	assert.Equal(t, 7, standings[0].Score)
	assert.Equal(t, 1, standings[0].Wins)
	assert.Equal(t, 1, standings[1].Losses)

	var stored []models.Match
	f.stored(t, models.SliceMatches, &stored)
	assert.Equal(t, models.MatchStatusCompleted, stored[0].Status)

	_, err = f.scorer.SubmitResult("missing", 1, 0)
	assert.ErrorIs(t, err, ErrUnknownMatch)
}

func TestSubmitResultOnlyScoresPendingMatches(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada", "Grace")
	matches, err := f.scorer.GenerateSchedule(schedule.FormatRoundRobin, AlwaysConfirm)
	require.NoError(t, err)
	m := matches[0]

	first, err := f.scorer.SubmitResult(m.ID, 3, 7)
	require.NoError(t, err)
	_, err = f.scorer.SubmitResult(m.ID, 9, 0)
	assert.ErrorIs(t, err, ErrMatchNotPending)

	require.NoError(t, f.scorer.AdjustPoints(players[0].ID, 15))
	manual := f.scorer.Matches()[1]
	require.True(t, manual.IsManual())
	_, err = f.scorer.SubmitResult(manual.ID, 0, 0)
	assert.ErrorIs(t, err, ErrMatchNotPending)

	var stored []models.Match
	f.stored(t, models.SliceMatches, &stored)
	require.Len(t, stored, 2)
	assert.Equal(t, first, stored[0])
	assert.Equal(t, 15, stored[1].ScoreP1)

	bonus := 0
	if m.P1ID == players[0].ID {
		bonus = 15
	}
	standings := f.scorer.Standings()
	byID := map[string]models.Player{}
	for _, p := range standings {
		byID[p.ID] = p
	}
	assert.Equal(t, 3+bonus, byID[m.P1ID].Score)
	assert.Equal(t, 1, byID[m.P1ID].Losses)
	assert.Equal(t, 7+15-bonus, byID[m.Opponent()].Score)
	assert.Equal(t, 1, byID[m.Opponent()].Wins)
}

func TestSubmitDrawHasNoWinner(t *testing.T) {
	f := newScorerFixture(t)
	f.addPlayers(t, "Ada", "Grace")
	matches, err := f.scorer.GenerateSchedule(schedule.FormatSwiss, AlwaysConfirm)
	require.NoError(t, err)

	done, err := f.scorer.SubmitResult(matches[0].ID, 4, 4)
	require.NoError(t, err)
	assert.Nil(t, done.WinnerID)
	for _, p := range f.scorer.Standings() {
		assert.Equal(t, 4, p.Score)
		assert.Zero(t, p.Wins)
		assert.Zero(t, p.Losses)
	}
}

func TestAdjustPointsCountsScoreOnly(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada")

	require.NoError(t, f.scorer.AdjustPoints(players[0].ID, 15))
	require.NoError(t, f.scorer.AdjustPoints(players[0].ID, -5))
	assert.ErrorIs(t, f.scorer.AdjustPoints("ghost", 1), ErrUnknownPlayer)

	standings := f.scorer.Standings()
	assert.Equal(t, 10, standings[0].Score)
	assert.Zero(t, standings[0].Wins)

	matches := f.scorer.Matches()
	require.Len(t, matches, 2)
	assert.True(t, matches[0].IsManual())
	assert.Equal(t, players[0].ID, matches[0].Winner())
	assert.Nil(t, matches[1].WinnerID)
	assert.Nil(t, matches[1].P2ID)
}

func TestDeletePlayer(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada", "Grace", "Linus")
	matches, err := f.scorer.GenerateSchedule(schedule.FormatRoundRobin, AlwaysConfirm)
	require.NoError(t, err)
	for _, m := range matches {
		_, err := f.scorer.SubmitResult(m.ID, 2, 1)
		require.NoError(t, err)
	}
	require.NoError(t, f.scorer.AdjustPoints(players[1].ID, 9))

	assert.ErrorIs(t, f.scorer.DeletePlayer(players[1].ID, never), ErrCancelled)
	assert.Len(t, f.client.Players(), 3)

	var prompt string
	require.NoError(t, f.scorer.DeletePlayer(players[1].ID, func(p string) bool {
		prompt = p
		return true
	}))
	assert.Equal(t, "DELETE PLAYER: Grace?", prompt)

	remaining := f.client.Players()
	require.Len(t, remaining, 2)
	for _, m := range f.client.Matches() {
		assert.False(t, m.Involves(players[1].ID))
	}
	require.Len(t, f.client.Matches(), 1)
	total := 0
	for _, p := range remaining {
		total += p.Score
	}
	assert.Equal(t, 3, total, "only the surviving match counts")

	assert.ErrorIs(t, f.scorer.DeletePlayer("ghost", AlwaysConfirm), ErrUnknownPlayer)
}

func TestGenerateSchedule(t *testing.T) {
	f := newScorerFixture(t)
	f.addPlayers(t, "Ada")

	_, err := f.scorer.GenerateSchedule(schedule.FormatSwiss, AlwaysConfirm)
	assert.ErrorIs(t, err, schedule.ErrNotEnoughPlayers)

	players := f.addPlayers(t, "Grace", "Linus", "Alan")
	require.NoError(t, f.scorer.AdjustPoints(players[0].ID, 5))

	_, err = f.scorer.GenerateSchedule(schedule.FormatSingleElimination, never)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Len(t, f.scorer.Matches(), 1)

	matches, err := f.scorer.GenerateSchedule(schedule.FormatSingleElimination, AlwaysConfirm)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, matches, f.scorer.Matches())
	for _, p := range f.scorer.Standings() {
		assert.Zero(t, p.Score, "old manual adjustments are cleared with the log")
	}
}

func TestTimerControls(t *testing.T) {
	f := newScorerFixture(t)

	assert.ErrorIs(t, f.scorer.StartTimer(0), countdown.ErrInvalidDuration)
	require.NoError(t, f.scorer.StartTimer(2))
	assert.True(t, f.client.Timer().IsRunning)

	f.clock.Advance(30 * time.Second)
	require.NoError(t, f.scorer.PauseTimer())
	var timer models.TimerState
	f.stored(t, models.SliceTimer, &timer)
	assert.False(t, timer.IsRunning)
	assert.Equal(t, 90, timer.RemainingSeconds)

	require.NoError(t, f.scorer.StartTimer(2))
	assert.Equal(t, 90, countdown.Remaining(f.client.Timer(), f.clock.Now()))

	require.NoError(t, f.scorer.ResetTimer(5))
	assert.Equal(t, models.TimerState{RemainingSeconds: 300}, f.client.Timer())
}

func TestSendBroadcast(t *testing.T) {
	f := newScorerFixture(t)
	players := f.addPlayers(t, "Ada", "Grace")

	_, err := f.scorer.SendBroadcast("", []string{models.TargetAll})
	assert.ErrorIs(t, err, broadcast.ErrEmptyText)
	_, err = f.scorer.SendBroadcast("hi", nil)
	assert.ErrorIs(t, err, broadcast.ErrNoRecipients)
	_, err = f.scorer.SendBroadcast("hi", []string{})
	assert.ErrorIs(t, err, broadcast.ErrNoRecipients)
	assert.Empty(t, f.client.Messages(), "rejected messages are never logged")
	_, err = f.scorer.SendBroadcast("hi", []string{"ghost"})
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	m, err := f.scorer.SendBroadcast("to table 2", []string{players[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Grace"}, m.TargetNames)

	require.NoError(t, f.scorer.RenamePlayer(players[1].ID, "Grace H."))
	_, err = f.scorer.SendBroadcast("everyone", []string{models.TargetAll})
	require.NoError(t, err)

	var messages []models.BroadcastMessage
	f.stored(t, models.SliceMessages, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"Grace"}, messages[0].TargetNames, "names are a send-time snapshot")
	assert.Equal(t, []string{models.TargetAll}, messages[1].Targets)
}

func TestResetRoom(t *testing.T) {
	f := newScorerFixture(t)
	lobby := NewLobby(f.mem, noopPrefs{}, f.clock)
	_, err := lobby.EnterScorer(context.Background(), code, "pw")
	require.NoError(t, err)

	f.addPlayers(t, "Ada", "Grace")
	_, err = f.scorer.GenerateSchedule(schedule.FormatSwiss, AlwaysConfirm)
	require.NoError(t, err)
	require.NoError(t, f.scorer.StartTimer(3))
	_, err = f.scorer.SendBroadcast("bye", []string{models.TargetAll})
	require.NoError(t, err)

	assert.ErrorIs(t, f.scorer.ResetRoom(never), ErrCancelled)
	require.NoError(t, f.scorer.ResetRoom(AlwaysConfirm))

	snap := f.client.Snapshot()
	assert.Empty(t, snap.Players)
	assert.Empty(t, snap.Matches)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, models.DefaultTimerState(), snap.Timer)

	var players []models.Player
	f.stored(t, models.SlicePlayers, &players)
	assert.Empty(t, players)

	_, err = lobby.JoinContestant(context.Background(), code)
	assert.NoError(t, err, "reset keeps the room itself")
}

type noopPrefs struct{}

func (noopPrefs) SetLastRoom(string) error { return nil }
func (noopPrefs) SetScorerPin(string, string) error { return nil }
func (noopPrefs) ClearSelectedPlayer(string) error { return nil }
