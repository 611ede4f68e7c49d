package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/room"
)

// RoomChecker reports whether a room can be watched.
type RoomChecker interface {
	Exists(ctx context.Context, code string) error
}

// WebSocketHandler handles websocket upgrade requests for room spectators
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	rooms             RoomChecker
}

func NewWebSocketHandler(cm *ConnectionManager, rooms RoomChecker) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm, rooms: rooms}
}

// HandleRoomConnection handles GET /ws/room?code=
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	code, err := room.NormalizeCode(r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.rooms != nil {
		if err := h.rooms.Exists(r.Context(), code); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}

	// The upgrader has already written an HTTP error on failure.
	if err := h.connectionManager.UpgradeConnection(w, r, code); err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to upgrade websocket connection")
	}
}

// HandleConnectionStats handles GET /ws/stats
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// statusFor maps room errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrInvalidRoomCode):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrConnectionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
