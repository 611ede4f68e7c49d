// Package room implements room entry and the scorer and contestant
// operations on top of a synced room.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/store"
)

// NormalizeCode strips everything but digits and keeps the first four.
func NormalizeCode(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == models.RoomCodeLength {
				break
			}
		}
	}
	if b.Len() != models.RoomCodeLength {
		return "", ErrInvalidRoomCode
	}
	return b.String(), nil
}

// Meta marks a room as existing.
type Meta struct {
	CreatedAt int64 `json:"createdAt"` // epoch ms
}

// LobbyPreferences is the device state touched on room entry.
type LobbyPreferences interface {
	SetLastRoom(code string) error
	SetScorerPin(code, pin string) error
	ClearSelectedPlayer(code string) error
}

// Lobby handles entering rooms before a sync client exists.
type Lobby struct {
	store store.RemoteStore
	prefs LobbyPreferences
	clock clockwork.Clock
}

// NewLobby creates a lobby. A nil store makes every entry fail with
// ErrConnectionUnavailable.
func NewLobby(st store.RemoteStore, prefs LobbyPreferences, clock clockwork.Clock) *Lobby {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lobby{store: st, prefs: prefs, clock: clock}
}

// EnterScorer opens a room for scoring. The first scorer to enter a code
// creates the room with their password; later scorers must match it.
func (l *Lobby) EnterScorer(ctx context.Context, input, password string) (string, error) {
	code, err := NormalizeCode(input)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyPassword
	}
	if l.store == nil {
		return "", ErrConnectionUnavailable
	}

	raw, exists, err := l.store.Get(ctx, models.ScorerPinPath(code))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}

	if exists {
		var pin string
		if err := json.Unmarshal(raw, &pin); err != nil {
			return "", fmt.Errorf("failed to read scorer pin: %w", err)
		}
		if pin != password {
			log.Warn().Str("room", code).Msg("Scorer entry refused, wrong password")
			return "", ErrWrongPassword
		}
	} else if err := l.createRoom(ctx, code, password); err != nil {
		return "", err
	}

	if err := l.prefs.SetScorerPin(code, password); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("Failed to cache scorer pin")
	}
	l.rememberRoom(code)
	log.Info().Str("room", code).Bool("created", !exists).Msg("Scorer entered room")
	return code, nil
}

func (l *Lobby) createRoom(ctx context.Context, code, password string) error {
	pin, err := json.Marshal(password)
	if err != nil {
		return fmt.Errorf("failed to encode scorer pin: %w", err)
	}
	if err := l.store.Set(ctx, models.ScorerPinPath(code), pin); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}

	_, hasMeta, err := l.store.Get(ctx, models.MetaPath(code))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	if hasMeta {
		return nil
	}
	meta, err := json.Marshal(Meta{CreatedAt: l.clock.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode room meta: %w", err)
	}
	if err := l.store.Set(ctx, models.MetaPath(code), meta); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	return nil
}

// JoinContestant enters an existing room as a contestant. Any player
// previously selected on this device for the room is forgotten.
func (l *Lobby) JoinContestant(ctx context.Context, input string) (string, error) {
	code, err := NormalizeCode(input)
	if err != nil {
		return "", err
	}
	if l.store == nil {
		return "", ErrConnectionUnavailable
	}

	_, exists, err := l.store.Get(ctx, models.MetaPath(code))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	if !exists {
		return "", ErrRoomNotFound
	}

	if err := l.prefs.ClearSelectedPlayer(code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("Failed to clear selected player")
	}
	l.rememberRoom(code)
	log.Info().Str("room", code).Msg("Contestant joined room")
	return code, nil
}

func (l *Lobby) rememberRoom(code string) {
	if err := l.prefs.SetLastRoom(code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("Failed to remember last room")
	}
}
