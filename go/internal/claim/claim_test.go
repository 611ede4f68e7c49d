package claim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

var now = time.UnixMilli(1_700_000_000_000)

func ptr[T any](v T) *T { return &v }

func roster() []models.Player {
	return []models.Player{
		{ID: "p1", Name: "Ada"},
		{ID: "p2", Name: "Grace"},
		{ID: "p3", Name: "Linus", SelectedBy: ptr("other"), SelectedAt: ptr(int64(1))},
	}
}

func TestState(t *testing.T) {
	players := roster()
	assert.Equal(t, Unclaimed, State(players[0], "me"))
	assert.Equal(t, ClaimedByOther, State(players[2], "me"))
	assert.Equal(t, ClaimedBySelf, State(players[2], "other"))
}

func TestClaim(t *testing.T) {
	tests := []struct {
		name     string
		players  []models.Player
		playerID string
		wantErr  error
	}{
		{"unclaimed player", roster(), "p1", nil},
		{"held by another device", roster(), "p3", ErrClaimedByOther},
		{"unknown player", roster(), "ghost", ErrUnknownPlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Claim(tt.players, tt.playerID, "me", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			p := got[models.FindPlayer(got, tt.playerID)]
			assert.Equal(t, ClaimedBySelf, State(p, "me"))
			assert.Equal(t, now.UnixMilli(), *p.SelectedAt)
		})
	}
}

func TestClaimReleasesPreviousSelection(t *testing.T) {
	players, err := Claim(roster(), "p1", "me", now)
	require.NoError(t, err)

	players, err = Claim(players, "p2", "me", now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, Unclaimed, State(players[0], "me"))
	assert.Nil(t, players[0].SelectedAt)
	assert.Equal(t, ClaimedBySelf, State(players[1], "me"))
	assert.Equal(t, ClaimedByOther, State(players[2], "me"), "other claims are untouched")

	held, ok := HeldBy(players, "me")
	require.True(t, ok)
	assert.Equal(t, "p2", held.ID)
}

func TestClaimIsExclusive(t *testing.T) {
	players, err := Claim(roster(), "p1", "alice", now)
	require.NoError(t, err)

	_, err = Claim(players, "p1", "bob", now)
	assert.ErrorIs(t, err, ErrClaimedByOther)

	again, err := Claim(players, "p1", "alice", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), *again[0].SelectedAt)
}

func TestClaimDoesNotMutateInput(t *testing.T) {
	players := roster()
	_, err := Claim(players, "p1", "me", now)
	require.NoError(t, err)
	assert.Nil(t, players[0].SelectedBy)
}

func TestRelease(t *testing.T) {
	players, err := Claim(roster(), "p1", "me", now)
	require.NoError(t, err)

	released := Release(players, "p1", "me")
	assert.Equal(t, Unclaimed, State(released[0], "me"))

	notMine := Release(players, "p3", "me")
	assert.Equal(t, ClaimedByOther, State(notMine[2], "me"))

	_, ok := HeldBy(released, "me")
	assert.False(t, ok)
}
