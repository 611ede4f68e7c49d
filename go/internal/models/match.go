package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// MatchStatus defines the status of a match.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCompleted MatchStatus = "completed"
)

// MatchType defines how a match entered the log.
type MatchType string

const (
	MatchTypeScheduled MatchType = "scheduled"
	MatchTypeManual    MatchType = "manual"
)

// manualRoundMarker is the wire value of the round of a manual point adjustment.
const manualRoundMarker = "M"

// Round is a schedule round number, or the manual-entry sentinel.
type Round struct {
	Number int
	Manual bool
}

// ScheduledRound returns a numbered round.
func ScheduledRound(n int) Round {
	return Round{Number: n}
}

// ManualRound returns the manual-entry sentinel round.
func ManualRound() Round {
	return Round{Manual: true}
}

func (r Round) String() string {
	if r.Manual {
		return manualRoundMarker
	}
	return strconv.Itoa(r.Number)
}

// MarshalJSON encodes manual rounds as "M" and scheduled rounds as numbers.
func (r Round) MarshalJSON() ([]byte, error) {
	if r.Manual {
		return json.Marshal(manualRoundMarker)
	}
	return json.Marshal(r.Number)
}

// UnmarshalJSON accepts a number, a numeric string or "M".
func (r *Round) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Round{}
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Round{Number: n}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid round %s: %w", string(data), err)
	}
	if s == manualRoundMarker {
		*r = Round{Manual: true}
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid round %q: %w", s, err)
	}
	*r = Round{Number: n}
	return nil
}

// Match is one entry of a room's append-only match log.
type Match struct {
	ID        string      `json:"id"`
	P1ID      string      `json:"p1_id"`
	P2ID      *string     `json:"p2_id"`
	ScoreP1   int         `json:"score_p1"`
	ScoreP2   int         `json:"score_p2"`
	WinnerID  *string     `json:"winnerId"`
	Status    MatchStatus `json:"status"`
	Type      MatchType   `json:"type,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Round     Round       `json:"round"`
}

// NewScheduledMatch creates a pending head-to-head match.
func NewScheduledMatch(p1, p2 string, round int, timestamp int64) Match {
	return Match{
		ID:        uuid.NewString(),
		P1ID:      p1,
		P2ID:      &p2,
		Status:    MatchStatusPending,
		Timestamp: timestamp,
		Round:     ScheduledRound(round),
	}
}

// NewManualAdjustment creates a completed self-match carrying a point delta.
// A positive delta records the player as the winner; manual matches never
// count toward wins or losses.
func NewManualAdjustment(playerID string, delta int, timestamp int64) Match {
	m := Match{
		ID:        uuid.NewString(),
		P1ID:      playerID,
		ScoreP1:   delta,
		Status:    MatchStatusCompleted,
		Type:      MatchTypeManual,
		Timestamp: timestamp,
		Round:     ManualRound(),
	}
	if delta > 0 {
		winner := playerID
		m.WinnerID = &winner
	}
	return m
}

// IsManual reports whether the match is a manual point adjustment.
func (m Match) IsManual() bool {
	return m.Type == MatchTypeManual
}

// IsCompleted reports whether a result has been recorded.
func (m Match) IsCompleted() bool {
	return m.Status == MatchStatusCompleted
}

// Opponent returns the second player's id, or "" for self-matches.
func (m Match) Opponent() string {
	if m.P2ID == nil {
		return ""
	}
	return *m.P2ID
}

// Winner returns the winner id, or "" when no winner is recorded.
func (m Match) Winner() string {
	if m.WinnerID == nil {
		return ""
	}
	return *m.WinnerID
}

// Involves reports whether playerID takes part in the match.
func (m Match) Involves(playerID string) bool {
	return m.P1ID == playerID || (m.P2ID != nil && *m.P2ID == playerID)
}

// FindMatch returns the index of the match with the given id, or -1.
func FindMatch(matches []Match, id string) int {
	for i := range matches {
		if matches[i].ID == id {
			return i
		}
	}
	return -1
}
