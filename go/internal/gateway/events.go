package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// RoomEvent is the envelope pushed to spectators.
type RoomEvent struct {
	ID        string          `json:"id"`
	Room      string          `json:"room"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of room event
type EventType string

const (
	EventTypeSnapshot        EventType = "Snapshot"
	EventTypePlayersChanged  EventType = "PlayersChanged"
	EventTypeMatchesChanged  EventType = "MatchesChanged"
	EventTypeTimerChanged    EventType = "TimerChanged"
	EventTypeMessagesChanged EventType = "MessagesChanged"
	EventTypePong            EventType = "Pong"
)

// ClientCommand is a message a spectator may send.
type ClientCommand struct {
	Type string `json:"type"`
}

const (
	CommandPing     = "ping"
	CommandSnapshot = "snapshot"
)

// SliceEventType maps a slice to the event announcing its change.
func SliceEventType(s models.Slice) EventType {
	switch s {
	case models.SlicePlayers:
		return EventTypePlayersChanged
	case models.SliceMatches:
		return EventTypeMatchesChanged
	case models.SliceTimer:
		return EventTypeTimerChanged
	case models.SliceMessages:
		return EventTypeMessagesChanged
	default:
		return EventType(s)
	}
}

// NewRoomEvent wraps payload in an envelope.
func NewRoomEvent(room string, typ EventType, payload any, now time.Time) (*RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return &RoomEvent{
		ID:        uuid.NewString(),
		Room:      room,
		Type:      typ,
		Timestamp: now,
		Data:      data,
	}, nil
}
