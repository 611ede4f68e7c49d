// Package broadcast builds scorer notices and decides which one a
// contestant screen should show.
package broadcast

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

const (
	// VisibleWindow is how recent a message must be to pop up at all, so
	// old messages are not replayed when a screen reconnects.
	VisibleWindow = 10 * time.Second
	// AutoDismissAfter is how long a message stays up without interaction.
	AutoDismissAfter = 8 * time.Second
)

var (
	ErrEmptyText    = errors.New("message text is empty")
	ErrNoRecipients = errors.New("select at least one player")
)

// EveryoneLabel is the display name snapshot for messages sent to all.
const EveryoneLabel = "ALL"

// NewMessage validates and builds a message. targets is either
// [models.TargetAll] or a list of player ids; targetNames is the matching
// display snapshot.
func NewMessage(text string, targets, targetNames []string, now time.Time) (models.BroadcastMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.BroadcastMessage{}, ErrEmptyText
	}
	if len(targets) == 0 {
		return models.BroadcastMessage{}, ErrNoRecipients
	}

	if slices.Contains(targets, models.TargetAll) {
		targets = []string{models.TargetAll}
		targetNames = []string{EveryoneLabel}
	}

	return models.BroadcastMessage{
		ID:          uuid.NewString(),
		Text:        text,
		Targets:     slices.Clone(targets),
		TargetNames: slices.Clone(targetNames),
		Timestamp:   now.UnixMilli(),
	}, nil
}

// Append returns the log with m added at the end.
func Append(messages []models.BroadcastMessage, m models.BroadcastMessage) []models.BroadcastMessage {
	out := make([]models.BroadcastMessage, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, m)
}

// Audience is the viewer a message is evaluated for. A contestant without a
// selected player only sees messages sent to everyone. An observer, such as a
// spectator screen, sees every message.
type Audience struct {
	PlayerID string
	Observer bool
}

// Accepts reports whether m is addressed to the audience.
func (a Audience) Accepts(m models.BroadcastMessage) bool {
	if a.Observer || m.IsForEveryone() {
		return true
	}
	return m.IsTargeted(a.PlayerID)
}

// Latest returns the most recent message addressed to the audience, provided
// it is younger than VisibleWindow. An older latest message hides everything,
// even if an earlier applicable one exists.
func Latest(messages []models.BroadcastMessage, audience Audience, now time.Time) (models.BroadcastMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if !audience.Accepts(m) {
			continue
		}
		if now.UnixMilli()-m.Timestamp < VisibleWindow.Milliseconds() {
			return m, true
		}
		return models.BroadcastMessage{}, false
	}
	return models.BroadcastMessage{}, false
}

// Title is the overlay heading for m.
func Title(m models.BroadcastMessage) string {
	if m.IsForEveryone() {
		return "BROADCAST"
	}
	if len(m.TargetNames) == 0 {
		return "MESSAGE FOR: YOU"
	}
	return "MESSAGE FOR: " + strings.Join(m.TargetNames, ", ")
}
