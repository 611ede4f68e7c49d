package room

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

type brokenStore struct{ store.RemoteStore }

func (brokenStore) Get(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, errors.New("dial tcp: connection refused")
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1234", "1234", false},
		{" 12-34 ", "1234", false},
		{"room 9876543", "9876", false},
		{"a1b2c3d4", "1234", false},
		{"123", "", true},
		{"", "", true},
		{"١٢٣٤", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoomCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newLobby(st store.RemoteStore) (*Lobby, *identity.Device, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	device := identity.NewDevice(identity.NewMemoryStore())
	return NewLobby(st, device, clock), device, clock
}

func TestEnterScorerCreatesRoom(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	lobby, device, clock := newLobby(mem)

	code, err := lobby.EnterScorer(ctx, "12 34", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	raw, ok, err := mem.Get(ctx, models.ScorerPinPath(code))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"s3cret"`, string(raw))

	raw, ok, err = mem.Get(ctx, models.MetaPath(code))
	require.NoError(t, err)
	require.True(t, ok)
	var meta Meta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, clock.Now().UnixMilli(), meta.CreatedAt)

	pin, err := device.ScorerPin(code)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pin)
	last, err := device.LastRoom()
	require.NoError(t, err)
	assert.Equal(t, "1234", last)
}

func TestEnterScorerChecksPassword(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	lobby, _, _ := newLobby(mem)
	_, err := lobby.EnterScorer(ctx, "1234", "s3cret")
	require.NoError(t, err)

	_, err = lobby.EnterScorer(ctx, "1234", "s3cret")
	assert.NoError(t, err)

	other, otherDevice, _ := newLobby(mem)
	_, err = other.EnterScorer(ctx, "1234", "guess")
	assert.ErrorIs(t, err, ErrWrongPassword)

	raw, _, err := mem.Get(ctx, models.ScorerPinPath("1234"))
	require.NoError(t, err)
	assert.JSONEq(t, `"s3cret"`, string(raw), "a refused entry alters nothing")
	last, err := otherDevice.LastRoom()
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestEnterScorerValidation(t *testing.T) {
	ctx := context.Background()
	lobby, _, _ := newLobby(store.NewMemory())

	_, err := lobby.EnterScorer(ctx, "12", "pw")
	assert.ErrorIs(t, err, ErrInvalidRoomCode)

	_, err = lobby.EnterScorer(ctx, "1234", "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestEntryWithoutConnection(t *testing.T) {
	ctx := context.Background()

	offline, _, _ := newLobby(nil)
	_, err := offline.EnterScorer(ctx, "1234", "pw")
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	_, err = offline.JoinContestant(ctx, "1234")
	assert.ErrorIs(t, err, ErrConnectionUnavailable)

	broken, _, _ := newLobby(brokenStore{})
	_, err = broken.EnterScorer(ctx, "1234", "pw")
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	_, err = broken.JoinContestant(ctx, "1234")
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
}

func TestJoinContestant(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	scorerLobby, _, _ := newLobby(mem)
	lobby, device, _ := newLobby(mem)

	_, err := lobby.JoinContestant(ctx, "5555")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = scorerLobby.EnterScorer(ctx, "5555", "pw")
	require.NoError(t, err)
	require.NoError(t, device.SetSelectedPlayer("5555", "stale"))

	code, err := lobby.JoinContestant(ctx, "5555")
	require.NoError(t, err)
	assert.Equal(t, "5555", code)

	selected, err := device.SelectedPlayer("5555")
	require.NoError(t, err)
	assert.Empty(t, selected)
}
