package models

import "fmt"

// Slice names one of the four independently synced parts of a room.
type Slice string

const (
	SlicePlayers  Slice = "players"
	SliceMatches  Slice = "matches"
	SliceTimer    Slice = "timer"
	SliceMessages Slice = "messages"
)

// AllSlices lists the synced slices in subscription order.
var AllSlices = []Slice{SlicePlayers, SliceMatches, SliceTimer, SliceMessages}

// RoomCodeLength is the number of digits in a room code.
const RoomCodeLength = 4

// RoomPath returns the store path of a room's node, e.g. rooms/1234/players.
func RoomPath(code, node string) string {
	return fmt.Sprintf("rooms/%s/%s", code, node)
}

// SlicePath returns the store path of one synced slice.
func SlicePath(code string, s Slice) string {
	return RoomPath(code, string(s))
}

// MetaPath returns the store path of the room existence marker.
func MetaPath(code string) string {
	return RoomPath(code, "meta")
}

// ScorerPinPath returns the store path of the room's scorer pin.
func ScorerPinPath(code string) string {
	return RoomPath(code, "scorerPin")
}

// RoomSnapshot is a point-in-time copy of all four slices.
type RoomSnapshot struct {
	Code     string             `json:"code"`
	Ready    bool               `json:"ready"`
	Players  []Player           `json:"players"`
	Matches  []Match            `json:"matches"`
	Timer    TimerState         `json:"timer"`
	Messages []BroadcastMessage `json:"messages"`
}
