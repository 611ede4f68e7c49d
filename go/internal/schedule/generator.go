// Package schedule builds fresh match logs for a roster.
package schedule

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// Format selects the pairing strategy.
type Format string

const (
	FormatSingleElimination Format = "single-elimination"
	FormatSwiss             Format = "swiss"
	FormatRoundRobin        Format = "round-robin"
)

var (
	// ErrNotEnoughPlayers is returned when fewer than two players are on the roster.
	ErrNotEnoughPlayers = errors.New("at least 2 players are required")
	// ErrUnknownFormat is returned for an unsupported format selector.
	ErrUnknownFormat = errors.New("unknown schedule format")
)

// ParseFormat maps user input, including the short aliases shown on the
// scorer screen (1v1, swiss, group), to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single-elimination", "elimination", "1v1":
		return FormatSingleElimination, nil
	case "swiss":
		return FormatSwiss, nil
	case "round-robin", "roundrobin", "group":
		return FormatRoundRobin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Generator produces schedules. The random source is injectable so tests can
// reproduce a shuffle.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng uses a randomly seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng}
}

// Generate returns a complete replacement match list for the roster.
// Every match is pending with zeroed scores and strictly increasing
// timestamps starting at startTimestamp.
func (g *Generator) Generate(players []models.Player, format Format, startTimestamp int64) ([]models.Match, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	g.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	switch format {
	case FormatSingleElimination, FormatSwiss:
		return pairConsecutive(ids, startTimestamp), nil
	case FormatRoundRobin:
		return roundRobin(ids, startTimestamp), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// pairConsecutive pairs shuffled players for round 1. The odd player out
// receives a bye, which is not represented as a match.
func pairConsecutive(ids []string, ts int64) []models.Match {
	matches := make([]models.Match, 0, len(ids)/2)
	for i := 0; i+1 < len(ids); i += 2 {
		matches = append(matches, models.NewScheduledMatch(ids[i], ids[i+1], 1, ts))
		ts++
	}
	return matches
}

// roundRobin uses the circle method: seat 0 stays fixed and every other seat
// rotates by one position after each round. An odd roster gets an empty bye
// seat whose pairings are skipped.
func roundRobin(ids []string, ts int64) []models.Match {
	seats := make([]string, len(ids), len(ids)+1)
	copy(seats, ids)
	if len(seats)%2 == 1 {
		seats = append(seats, "")
	}

	n := len(seats)
	half := n / 2
	matches := make([]models.Match, 0, len(ids)*(len(ids)-1)/2)

	for round := 1; round <= n-1; round++ {
		for i := 0; i < half; i++ {
			p1, p2 := seats[i], seats[n-1-i]
			if p1 == "" || p2 == "" {
				continue
			}
			matches = append(matches, models.NewScheduledMatch(p1, p2, round, ts))
			ts++
		}
		last := seats[n-1]
		copy(seats[2:], seats[1:n-1])
		seats[1] = last
	}

	return matches
}
