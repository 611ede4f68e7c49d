package gateway

import (
	"time"

	"github.com/mcdev12/scoreboard/go/internal/broadcast"
	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/stats"
)

// RoomState is the spectator view of a room, served over websocket,
// REST and RPC.
type RoomState struct {
	Code          string                    `json:"code"`
	Ready         bool                      `json:"ready"`
	Standings     []models.Player           `json:"standings"`
	Matches       []models.Match            `json:"matches"`
	Timer         TimerView                 `json:"timer"`
	Messages      []models.BroadcastMessage `json:"messages"`
	LatestMessage *models.BroadcastMessage  `json:"latestMessage"`
}

// TimerView adds the derived countdown to the stored timer.
type TimerView struct {
	models.TimerState
	Remaining int    `json:"remaining"`
	Display   string `json:"display"`
}

// MessagesView is the payload of a messages change.
type MessagesView struct {
	Messages []models.BroadcastMessage `json:"messages"`
	Latest   *models.BroadcastMessage  `json:"latest"`
}

var spectator = broadcast.Audience{Observer: true}

// NewRoomState derives the spectator view from a snapshot.
func NewRoomState(snap models.RoomSnapshot, now time.Time) RoomState {
	messages := messagesView(snap.Messages, now)
	return RoomState{
		Code:          snap.Code,
		Ready:         snap.Ready,
		Standings:     stats.Rank(snap.Players),
		Matches:       snap.Matches,
		Timer:         timerView(snap.Timer, now),
		Messages:      messages.Messages,
		LatestMessage: messages.Latest,
	}
}

func timerView(t models.TimerState, now time.Time) TimerView {
	remaining := countdown.Remaining(t, now)
	return TimerView{
		TimerState: t,
		Remaining:  remaining,
		Display:    countdown.Format(remaining),
	}
}

func messagesView(messages []models.BroadcastMessage, now time.Time) MessagesView {
	v := MessagesView{Messages: messages}
	if m, ok := broadcast.Latest(messages, spectator, now); ok {
		v.Latest = &m
	}
	return v
}
