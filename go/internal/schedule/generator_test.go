package schedule

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

func fakeRoster(t *testing.T, n int) []models.Player {
	t.Helper()
	faker := gofakeit.New(uint64(n))
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.NewPlayer(faker.FirstName())
	}
	return players
}

func newTestGenerator() *Generator {
	return NewGenerator(rand.New(rand.NewPCG(1, 2)))
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func TestGenerateRejectsSmallRoster(t *testing.T) {
	g := newTestGenerator()
	for _, n := range []int{0, 1} {
		_, err := g.Generate(fakeRoster(t, n), FormatRoundRobin, 1)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	}
}

func TestGenerateUnknownFormat(t *testing.T) {
	_, err := newTestGenerator().Generate(fakeRoster(t, 4), Format("ladder"), 1)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRoundRobinTotality(t *testing.T) {
	for n := 2; n <= 9; n++ {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			players := fakeRoster(t, n)
			matches, err := newTestGenerator().Generate(players, FormatRoundRobin, 1000)
			require.NoError(t, err)

			assert.Len(t, matches, n*(n-1)/2)

			seenPairs := make(map[string]int)
			perRound := make(map[int]map[string]bool)
			for _, m := range matches {
				p2 := m.Opponent()
				require.NotEmpty(t, p2)
				require.NotEqual(t, m.P1ID, p2)
				seenPairs[pairKey(m.P1ID, p2)]++

				r := m.Round.Number
				if perRound[r] == nil {
					perRound[r] = make(map[string]bool)
				}
				assert.False(t, perRound[r][m.P1ID], "player twice in round %d", r)
				assert.False(t, perRound[r][p2], "player twice in round %d", r)
				perRound[r][m.P1ID] = true
				perRound[r][p2] = true
			}

			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					assert.Equal(t, 1, seenPairs[pairKey(players[i].ID, players[j].ID)])
				}
			}
		})
	}
}

func TestFirstRoundPairing(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		players   int
		wantCount int
	}{
		{"elimination even", FormatSingleElimination, 8, 4},
		{"elimination odd leaves a bye", FormatSingleElimination, 7, 3},
		{"swiss even", FormatSwiss, 6, 3},
		{"swiss odd", FormatSwiss, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := newTestGenerator().Generate(fakeRoster(t, tt.players), tt.format, 1)
			require.NoError(t, err)
			require.Len(t, matches, tt.wantCount)

			seen := make(map[string]bool)
			for _, m := range matches {
				assert.Equal(t, 1, m.Round.Number)
				for _, id := range []string{m.P1ID, m.Opponent()} {
					assert.False(t, seen[id], "player %s paired twice", id)
					seen[id] = true
				}
			}
		})
	}
}

func TestGeneratedMatchesStartPending(t *testing.T) {
	matches, err := newTestGenerator().Generate(fakeRoster(t, 5), FormatRoundRobin, 500)
	require.NoError(t, err)

	for i, m := range matches {
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.False(t, m.IsManual())
		assert.Zero(t, m.ScoreP1)
		assert.Zero(t, m.ScoreP2)
		assert.Nil(t, m.WinnerID)
		assert.Equal(t, int64(500+i), m.Timestamp)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"1V1":          FormatSingleElimination,
		"swiss":        FormatSwiss,
		"GROUP":        FormatRoundRobin,
		" round-robin": FormatRoundRobin,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("bracket")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
