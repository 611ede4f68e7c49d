package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/store"
)

// Service is the spectator gateway: websocket fan-out of room changes plus
// REST and RPC snapshots.
type Service struct {
	connectionManager *ConnectionManager
	watcher           *RoomWatcher
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	roomService       *RoomService
}

// Config holds configuration for the gateway service
type Config struct {
	Connection ConnectionConfig
	Watcher    WatcherConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		Connection: DefaultConnectionConfig(),
		Watcher:    DefaultWatcherConfig(),
	}
}

// NewService wires the gateway over st. A nil reg disables gateway metrics.
func NewService(config Config, st store.RemoteStore, clock clockwork.Clock, reg prometheus.Registerer) *Service {
	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}

	connectionManager := NewConnectionManager(config.Connection, metrics)
	watcher := NewRoomWatcher(st, connectionManager, clock, config.Watcher, metrics)
	connectionManager.SetSource(watcher)

	return &Service{
		connectionManager: connectionManager,
		watcher:           watcher,
		wsHandler:         NewWebSocketHandler(connectionManager, watcher),
		stateHandler:      NewStateHandler(watcher),
		roomService:       NewRoomService(watcher),
	}
}

// Start runs the broadcast loop until ctx is done, then stops watching.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting spectator gateway")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("spectator gateway shutting down")
	return s.Stop()
}

// Stop closes every room watch.
func (s *Service) Stop() error {
	s.watcher.Close()
	log.Info().Msg("spectator gateway stopped")
	return nil
}

// RegisterRoutes registers the gateway routes on r.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/ws/room", s.wsHandler.HandleRoomConnection)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)
	r.Get("/api/rooms/{code}/state", s.stateHandler.HandleGetRoomState)

	path, handler := NewRoomServiceHandler(s.roomService)
	r.Handle(path+"*", handler)

	log.Info().Msg("gateway routes registered")
}

// Stats returns statistics about spectator connections
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
