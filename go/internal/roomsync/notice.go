package roomsync

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/models"
)

// NoticeKind classifies a short-lived user notice.
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a non-fatal event surfaced to the user, such as a failed write.
type Notice struct {
	Kind    NoticeKind
	Room    string
	Slice   models.Slice
	Message string
	Err     error
}

// Notifier receives notices from the sync engine.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	ev := log.Info()
	switch n.Kind {
	case NoticeError:
		ev = log.Warn().Err(n.Err)
	case NoticeSuccess:
		ev = log.Debug()
	}
	ev.Str("room", n.Room).Str("slice", string(n.Slice)).Msg(n.Message)
}
