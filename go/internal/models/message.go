package models

import "slices"

// TargetAll addresses a broadcast to every contestant.
const TargetAll = "all"

// BroadcastMessage is one entry of a room's append-only notice log.
// TargetNames is a display snapshot taken at send time and is never re-resolved.
type BroadcastMessage struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Targets     []string `json:"targets"`
	TargetNames []string `json:"targetNames"`
	Timestamp   int64    `json:"timestamp"` // epoch ms
}

// IsForEveryone reports whether the message is addressed to all contestants.
// Messages without any targets are treated as addressed to everyone.
func (m BroadcastMessage) IsForEveryone() bool {
	return len(m.Targets) == 0 || slices.Contains(m.Targets, TargetAll)
}

// IsTargeted reports whether the message explicitly targets playerID.
func (m BroadcastMessage) IsTargeted(playerID string) bool {
	return playerID != "" && slices.Contains(m.Targets, playerID)
}
