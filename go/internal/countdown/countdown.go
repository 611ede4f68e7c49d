// Package countdown holds the shared round timer transitions.
package countdown

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// ErrInvalidDuration is returned for a non-positive number of minutes.
var ErrInvalidDuration = errors.New("timer minutes must be positive")

// Start runs the timer. A paused timer resumes from its frozen remaining
// seconds; otherwise it counts down from minutes. Starting a running timer
// returns it unchanged.
func Start(state models.TimerState, minutes int, now time.Time) (models.TimerState, error) {
	if state.IsRunning {
		return state, nil
	}
	seconds := state.RemainingSeconds
	if seconds <= 0 {
		if minutes <= 0 {
			return state, ErrInvalidDuration
		}
		seconds = minutes * 60
	}

	target := now.Add(time.Duration(seconds) * time.Second).UnixMilli()
	state.TargetTime = &target
	state.IsRunning = true
	return state, nil
}

// Pause freezes a running timer at its remaining whole seconds.
func Pause(state models.TimerState, now time.Time) models.TimerState {
	if !state.IsRunning {
		return state
	}
	return models.TimerState{
		RemainingSeconds: Remaining(state, now),
	}
}

// Reset stops the timer and rewinds it to minutes.
func Reset(minutes int) (models.TimerState, error) {
	if minutes <= 0 {
		return models.TimerState{}, ErrInvalidDuration
	}
	return models.TimerState{RemainingSeconds: minutes * 60}, nil
}

// Remaining returns the whole seconds left on the timer as of now.
func Remaining(state models.TimerState, now time.Time) int {
	if !state.IsRunning || state.TargetTime == nil {
		return state.RemainingSeconds
	}
	ms := *state.TargetTime - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}

// Format renders seconds as MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
