// Package claim implements exclusive selection of a roster entry by a
// contestant device. Claims are last-writer-wins: two devices claiming the
// same player at once both write, and the later write stands.
package claim

import (
	"errors"
	"slices"
	"time"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

var (
	ErrClaimedByOther = errors.New("player is already claimed by another device")
	ErrUnknownPlayer  = errors.New("player not found")
)

// Status is a player's claim state as seen by one client.
type Status int

const (
	Unclaimed Status = iota
	ClaimedBySelf
	ClaimedByOther
)

func (s Status) String() string {
	switch s {
	case ClaimedBySelf:
		return "claimed-by-self"
	case ClaimedByOther:
		return "claimed-by-other"
	default:
		return "unclaimed"
	}
}

// State classifies p from clientID's point of view.
func State(p models.Player, clientID string) Status {
	switch owner := p.ClaimedBy(); owner {
	case "":
		return Unclaimed
	case clientID:
		return ClaimedBySelf
	default:
		return ClaimedByOther
	}
}

// Claim returns a roster in which clientID holds playerID. Any other player
// held by clientID is released in the same roster.
func Claim(players []models.Player, playerID, clientID string, now time.Time) ([]models.Player, error) {
	idx := models.FindPlayer(players, playerID)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}
	if State(players[idx], clientID) == ClaimedByOther {
		return nil, ErrClaimedByOther
	}

	out := slices.Clone(players)
	for i := range out {
		if i != idx && State(out[i], clientID) == ClaimedBySelf {
			out[i].SelectedBy = nil
			out[i].SelectedAt = nil
		}
	}

	owner := clientID
	at := now.UnixMilli()
	out[idx].SelectedBy = &owner
	out[idx].SelectedAt = &at
	return out, nil
}

// Release clears clientID's claim on playerID. Releasing a player held by
// someone else, or not held at all, returns the roster unchanged.
func Release(players []models.Player, playerID, clientID string) []models.Player {
	idx := models.FindPlayer(players, playerID)
	if idx < 0 || State(players[idx], clientID) != ClaimedBySelf {
		return players
	}

	out := slices.Clone(players)
	out[idx].SelectedBy = nil
	out[idx].SelectedAt = nil
	return out
}

// HeldBy returns the player currently claimed by clientID.
func HeldBy(players []models.Player, clientID string) (models.Player, bool) {
	for _, p := range players {
		if State(p, clientID) == ClaimedBySelf {
			return p, true
		}
	}
	return models.Player{}, false
}
