package models

// TimerState is the shared round timer.
// TargetTime is only meaningful while IsRunning; RemainingSeconds is the
// frozen snapshot used while paused or after a reset.
type TimerState struct {
	TargetTime       *int64 `json:"targetTime"` // epoch ms
	IsRunning        bool   `json:"isRunning"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// DefaultTimerState is the value of a room that never started a timer.
func DefaultTimerState() TimerState {
	return TimerState{}
}
