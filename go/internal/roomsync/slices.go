package roomsync

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// decodeSlice parses a store value for s. An absent value or JSON null
// decodes to the slice default.
func decodeSlice(s models.Slice, raw json.RawMessage, exists bool) (any, error) {
	if !exists || len(raw) == 0 {
		raw = json.RawMessage("null")
	}

	switch s {
	case models.SlicePlayers:
		var v []models.Player
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
		return v, nil
	case models.SliceMatches:
		var v []models.Match
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode matches: %w", err)
		}
		return v, nil
	case models.SliceTimer:
		v := models.DefaultTimerState()
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode timer: %w", err)
		}
		return v, nil
	case models.SliceMessages:
		var v []models.BroadcastMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown slice %q", s)
	}
}

func (c *Client) assignLocked(s models.Slice, value any) {
	switch s {
	case models.SlicePlayers:
		c.players = value.([]models.Player)
	case models.SliceMatches:
		c.matches = value.([]models.Match)
	case models.SliceTimer:
		c.timer = value.(models.TimerState)
	case models.SliceMessages:
		c.messages = value.([]models.BroadcastMessage)
	}
	c.normalizeLocked()
}

func (c *Client) encodeLocked(s models.Slice) (json.RawMessage, error) {
	switch s {
	case models.SlicePlayers:
		return json.Marshal(c.players)
	case models.SliceMatches:
		return json.Marshal(c.matches)
	case models.SliceTimer:
		return json.Marshal(c.timer)
	case models.SliceMessages:
		return json.Marshal(c.messages)
	default:
		return nil, fmt.Errorf("unknown slice %q", s)
	}
}

// normalizeLocked keeps collections non-nil so they encode as [] rather
// than null.
func (c *Client) normalizeLocked() {
	if c.players == nil {
		c.players = []models.Player{}
	}
	if c.matches == nil {
		c.matches = []models.Match{}
	}
	if c.messages == nil {
		c.messages = []models.BroadcastMessage{}
	}
}
