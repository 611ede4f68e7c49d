package sqlutil

import (
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// ToNullRawMessage wraps a JSON document for a nullable JSONB column.
// A nil document is stored as SQL NULL.
func ToNullRawMessage(raw json.RawMessage) pqtype.NullRawMessage {
	if raw == nil {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}

// FromNullRawMessage unwraps a nullable JSONB column. It reports false for NULL.
func FromNullRawMessage(val pqtype.NullRawMessage) (json.RawMessage, bool) {
	if !val.Valid {
		return nil, false
	}
	return val.RawMessage, true
}

// EpochMillis converts a database timestamp to epoch milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
