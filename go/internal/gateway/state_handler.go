package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// StateProvider returns the spectator view of a room.
type StateProvider interface {
	State(ctx context.Context, code string) (RoomState, error)
}

// StateHandler handles HTTP requests for room state
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetRoomState handles GET /api/rooms/{code}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	state, err := h.stateProvider.State(r.Context(), code)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("room", code).Msg("failed to get room state")
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, state)
}
