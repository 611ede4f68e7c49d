package models

import "github.com/google/uuid"

// Player represents a contestant on a room's roster.
// Score, Wins and Losses are derived from the match log and are only
// rewritten by the stats recompute step.
type Player struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	SelectedBy *string `json:"selectedBy"`
	SelectedAt *int64  `json:"selectedAt"` // epoch ms
}

// NewPlayer creates an unclaimed player with zeroed stats.
func NewPlayer(name string) Player {
	return Player{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// ClaimedBy returns the client id holding the player, or "" when unclaimed.
func (p Player) ClaimedBy() string {
	if p.SelectedBy == nil {
		return ""
	}
	return *p.SelectedBy
}

// FindPlayer returns the index of the player with the given id, or -1.
func FindPlayer(players []Player, id string) int {
	for i := range players {
		if players[i].ID == id {
			return i
		}
	}
	return -1
}
