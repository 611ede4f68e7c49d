package room

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/broadcast"
	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/schedule"
	"github.com/mcdev12/scoreboard/go/internal/stats"
)

// Confirmer asks the user to approve a destructive operation.
type Confirmer func(prompt string) bool

// AlwaysConfirm approves every prompt.
func AlwaysConfirm(string) bool { return true }

// Scorer is the authoritative editor of a room. Every operation is refused
// with ErrNotReady until the room is fully hydrated.
type Scorer struct {
	client    *roomsync.Client
	clock     clockwork.Clock
	generator *schedule.Generator
}

func NewScorer(client *roomsync.Client, clock clockwork.Clock, generator *schedule.Generator) *Scorer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if generator == nil {
		generator = schedule.NewGenerator(nil)
	}
	return &Scorer{client: client, clock: clock, generator: generator}
}

func (s *Scorer) ready() error {
	if !s.client.Ready() {
		return ErrNotReady
	}
	return nil
}

// AddPlayer appends a new player with zeroed stats.
func (s *Scorer) AddPlayer(name string) (models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Player{}, ErrEmptyName
	}
	if err := s.ready(); err != nil {
		return models.Player{}, err
	}

	p := models.NewPlayer(name)
	err := s.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		return append(players, p), nil
	})
	if err != nil {
		return models.Player{}, err
	}
	log.Info().Str("room", s.client.Code()).Str("player_id", p.ID).Str("name", name).Msg("Player added")
	return p, nil
}

// RenamePlayer changes a player's display name.
func (s *Scorer) RenamePlayer(playerID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := s.ready(); err != nil {
		return err
	}

	return s.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		idx := models.FindPlayer(players, playerID)
		if idx < 0 {
			return nil, ErrUnknownPlayer
		}
		players[idx].Name = name
		return players, nil
	})
}

// DeletePlayer removes a player and every match they took part in, then
// recomputes the remaining roster.
func (s *Scorer) DeletePlayer(playerID string, confirm Confirmer) error {
	if err := s.ready(); err != nil {
		return err
	}
	players := s.client.Players()
	idx := models.FindPlayer(players, playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	if !confirm(fmt.Sprintf("DELETE PLAYER: %s?", players[idx].Name)) {
		return ErrCancelled
	}

	var remaining []models.Match
	err := s.client.UpdateMatches(func(matches []models.Match) ([]models.Match, error) {
		remaining = slices.DeleteFunc(matches, func(m models.Match) bool { return m.Involves(playerID) })
		return remaining, nil
	})
	if err != nil {
		return err
	}
	err = s.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		remainingPlayers, _ := stats.WithoutPlayer(players, remaining, playerID)
		return remainingPlayers, nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("room", s.client.Code()).Str("player_id", playerID).Msg("Player deleted")
	return nil
}

// SubmitResult completes a pending match with the given scores. The higher
// score wins; a draw has no winner. Completed matches and manual adjustments
// are refused with ErrMatchNotPending.
func (s *Scorer) SubmitResult(matchID string, scoreP1, scoreP2 int) (models.Match, error) {
	if err := s.ready(); err != nil {
		return models.Match{}, err
	}

	var updated models.Match
	var matchLog []models.Match
	err := s.client.UpdateMatches(func(matches []models.Match) ([]models.Match, error) {
		idx := models.FindMatch(matches, matchID)
		if idx < 0 {
			return nil, ErrUnknownMatch
		}
		m := matches[idx]
		if m.IsManual() || m.Status != models.MatchStatusPending {
			return nil, ErrMatchNotPending
		}
		m.ScoreP1 = scoreP1
		m.ScoreP2 = scoreP2
		m.WinnerID = stats.Winner(m, scoreP1, scoreP2)
		m.Status = models.MatchStatusCompleted
		matches[idx] = m
		updated = m
		matchLog = matches
		return matches, nil
	})
	if err != nil {
		return models.Match{}, err
	}
	if err := s.recompute(matchLog); err != nil {
		return models.Match{}, err
	}

	log.Info().
		Str("room", s.client.Code()).
		Str("match_id", matchID).
		Int("score_p1", scoreP1).
		Int("score_p2", scoreP2).
		Msg("Result submitted")
	return updated, nil
}

// AdjustPoints records a manual score change for one player. It counts
// toward score only, never toward wins or losses.
func (s *Scorer) AdjustPoints(playerID string, delta int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if models.FindPlayer(s.client.Players(), playerID) < 0 {
		return ErrUnknownPlayer
	}

	entry := models.NewManualAdjustment(playerID, delta, s.clock.Now().UnixMilli())
	var matchLog []models.Match
	err := s.client.UpdateMatches(func(matches []models.Match) ([]models.Match, error) {
		matchLog = append(matches, entry)
		return matchLog, nil
	})
	if err != nil {
		return err
	}
	if err := s.recompute(matchLog); err != nil {
		return err
	}

	log.Info().Str("room", s.client.Code()).Str("player_id", playerID).Int("delta", delta).Msg("Points adjusted")
	return nil
}

// GenerateSchedule replaces the whole match log with a fresh schedule.
func (s *Scorer) GenerateSchedule(format schedule.Format, confirm Confirmer) ([]models.Match, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	players := s.client.Players()
	if len(players) < 2 {
		return nil, schedule.ErrNotEnoughPlayers
	}
	if !confirm(fmt.Sprintf("Generate %s schedule? Existing matches will be CLEARED.", format)) {
		return nil, ErrCancelled
	}

	matches, err := s.generator.Generate(players, format, s.clock.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if err := s.client.SetMatches(matches); err != nil {
		return nil, err
	}
	if err := s.recompute(matches); err != nil {
		return nil, err
	}

	log.Info().
		Str("room", s.client.Code()).
		Str("format", string(format)).
		Int("matches", len(matches)).
		Msg("Schedule generated")
	return matches, nil
}

// StartTimer starts or resumes the round timer.
func (s *Scorer) StartTimer(minutes int) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := s.clock.Now()
	return s.client.UpdateTimer(func(t models.TimerState) (models.TimerState, error) {
		return countdown.Start(t, minutes, now)
	})
}

// PauseTimer freezes the round timer.
func (s *Scorer) PauseTimer() error {
	if err := s.ready(); err != nil {
		return err
	}
	now := s.clock.Now()
	return s.client.UpdateTimer(func(t models.TimerState) (models.TimerState, error) {
		return countdown.Pause(t, now), nil
	})
}

// ResetTimer stops the round timer and rewinds it to minutes.
func (s *Scorer) ResetTimer(minutes int) error {
	if err := s.ready(); err != nil {
		return err
	}
	t, err := countdown.Reset(minutes)
	if err != nil {
		return err
	}
	return s.client.SetTimer(t)
}

// SendBroadcast appends a notice. targets is [models.TargetAll] or a list
// of player ids; recipient names are captured at send time.
func (s *Scorer) SendBroadcast(text string, targets []string) (models.BroadcastMessage, error) {
	if err := s.ready(); err != nil {
		return models.BroadcastMessage{}, err
	}

	var names []string
	if !slices.Contains(targets, models.TargetAll) {
		players := s.client.Players()
		for _, id := range targets {
			idx := models.FindPlayer(players, id)
			if idx < 0 {
				return models.BroadcastMessage{}, ErrUnknownPlayer
			}
			names = append(names, players[idx].Name)
		}
	}

	m, err := broadcast.NewMessage(text, targets, names, s.clock.Now())
	if err != nil {
		return models.BroadcastMessage{}, err
	}
	err = s.client.UpdateMessages(func(messages []models.BroadcastMessage) ([]models.BroadcastMessage, error) {
		return broadcast.Append(messages, m), nil
	})
	if err != nil {
		return models.BroadcastMessage{}, err
	}

	log.Info().Str("room", s.client.Code()).Strs("targets", m.Targets).Msg("Broadcast sent")
	return m, nil
}

// ResetRoom clears all four slices. The room itself, its pin and meta stay.
func (s *Scorer) ResetRoom(confirm Confirmer) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !confirm("RESET ALL DATA?") {
		return ErrCancelled
	}

	if err := s.client.SetPlayers([]models.Player{}); err != nil {
		return err
	}
	if err := s.client.SetMatches([]models.Match{}); err != nil {
		return err
	}
	if err := s.client.SetTimer(models.DefaultTimerState()); err != nil {
		return err
	}
	if err := s.client.SetMessages([]models.BroadcastMessage{}); err != nil {
		return err
	}

	log.Warn().Str("room", s.client.Code()).Msg("Room reset")
	return nil
}

// Standings returns the roster ranked by score.
func (s *Scorer) Standings() []models.Player {
	return stats.Rank(s.client.Players())
}

// Matches returns the match log.
func (s *Scorer) Matches() []models.Match {
	return s.client.Matches()
}

// recompute rewrites the roster's derived stats from matches. It is a
// separate write issued after the match log write.
func (s *Scorer) recompute(matches []models.Match) error {
	return s.client.UpdatePlayers(func(players []models.Player) ([]models.Player, error) {
		return stats.Recompute(players, matches), nil
	})
}
