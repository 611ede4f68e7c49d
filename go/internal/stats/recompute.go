// Package stats derives player scores and win/loss records from a room's match log.
package stats

import (
	"sort"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// Recompute returns a new roster whose Score, Wins and Losses are folded from
// the completed matches in log order. All other player fields are preserved.
// Matches that reference players missing from the roster contribute nothing
// for the missing side. Manual adjustments only contribute score.
func Recompute(players []models.Player, matches []models.Match) []models.Player {
	out := make([]models.Player, len(players))
	index := make(map[string]int, len(players))
	for i, p := range players {
		p.Score, p.Wins, p.Losses = 0, 0, 0
		out[i] = p
		index[p.ID] = i
	}

	for _, m := range matches {
		if !m.IsCompleted() {
			continue
		}

		if i, ok := index[m.P1ID]; ok {
			out[i].Score += m.ScoreP1
		}
		if p2 := m.Opponent(); p2 != "" {
			if i, ok := index[p2]; ok {
				out[i].Score += m.ScoreP2
			}
		}

		winner := m.Winner()
		if winner == "" || m.IsManual() {
			continue
		}
		loser := m.P1ID
		if winner == m.P1ID {
			loser = m.Opponent()
		}
		if i, ok := index[winner]; ok {
			out[i].Wins++
		}
		if i, ok := index[loser]; ok && loser != "" {
			out[i].Losses++
		}
	}

	return out
}

// WithoutPlayer removes playerID from the roster, drops every match that
// references it, and recomputes the remaining roster over the filtered log.
func WithoutPlayer(players []models.Player, matches []models.Match, playerID string) ([]models.Player, []models.Match) {
	remainingPlayers := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.ID != playerID {
			remainingPlayers = append(remainingPlayers, p)
		}
	}

	remainingMatches := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if !m.Involves(playerID) {
			remainingMatches = append(remainingMatches, m)
		}
	}

	return Recompute(remainingPlayers, remainingMatches), remainingMatches
}

// Winner decides the winner of a submitted head-to-head result.
// The higher score wins; a draw has no winner.
func Winner(m models.Match, scoreP1, scoreP2 int) *string {
	switch {
	case scoreP1 > scoreP2:
		id := m.P1ID
		return &id
	case scoreP2 > scoreP1 && m.P2ID != nil:
		id := *m.P2ID
		return &id
	default:
		return nil
	}
}

// Rank returns a copy of the roster ordered by score, highest first.
// Players with equal scores keep their roster order.
func Rank(players []models.Player) []models.Player {
	ranked := make([]models.Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
