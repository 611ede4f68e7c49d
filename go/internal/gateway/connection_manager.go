package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RoomSource feeds room state to the connection manager. Acquire and
// Release are called once per spectator connection.
type RoomSource interface {
	Acquire(code string)
	Release(code string)
	Snapshot(code string) (*RoomEvent, bool)
}

// ConnectionManager manages spectator websocket connections per room
type ConnectionManager struct {
	// Connection pools organized by room code
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	source   RoomSource
	metrics  *Metrics

	broadcastCh chan Broadcast
}

// Connection represents a websocket connection to a spectator
type Connection struct {
	ID         string
	Room       string
	RemoteAddr string
	Conn       *websocket.Conn
	Send       chan []byte
	Manager    *ConnectionManager

	limiter     *rate.Limiter
	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// Inbound message budget per connection.
	ClientMessageRate  rate.Limit
	ClientMessageBurst int
	CheckOrigin        func(r *http.Request) bool
}

// Broadcast is a queued event for a room. A non-empty ConnectionID limits
// delivery to that connection.
type Broadcast struct {
	Room         string
	Event        *RoomEvent
	ConnectionID string
}

// ConnectionStats summarizes active connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:       10 * time.Second,
		ReadTimeout:        60 * time.Second,
		PingInterval:       30 * time.Second,
		MaxMessageSize:     1024,
		ReadBufferSize:     1024,
		WriteBufferSize:    1024,
		SendBufferSize:     256,
		ClientMessageRate:  rate.Limit(5),
		ClientMessageBurst: 10,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new websocket connection manager
func NewConnectionManager(config ConnectionConfig, metrics *Metrics) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		metrics:     metrics,
		broadcastCh: make(chan Broadcast, 1000),
	}
}

// SetSource attaches the room state source. It must be called before the
// first connection is accepted.
func (cm *ConnectionManager) SetSource(source RoomSource) {
	cm.source = source
}

// Start processes queued broadcasts until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to a spectator websocket for room.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, room string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := cm.newConnection(room, r.RemoteAddr, conn)
	cm.attach(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("room", room).
		Str("remote_addr", r.RemoteAddr).
		Msg("Spectator connected")
	return nil
}

func (cm *ConnectionManager) newConnection(room, remoteAddr string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		Room:        room,
		RemoteAddr:  remoteAddr,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		limiter:     rate.NewLimiter(cm.config.ClientMessageRate, cm.config.ClientMessageBurst),
		ConnectedAt: time.Now(),
	}
}

// attach acquires the room, registers the connection and queues its
// initial snapshot.
func (cm *ConnectionManager) attach(conn *Connection) {
	if cm.source != nil {
		cm.source.Acquire(conn.Room)
	}
	cm.registerConnection(conn)
	cm.sendSnapshot(conn)
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.rooms[conn.Room] == nil {
		cm.rooms[conn.Room] = make(map[*Connection]bool)
	}
	cm.rooms[conn.Room][conn] = true
	cm.metrics.connectionOpened()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room", conn.Room).
		Int("total_connections", len(cm.rooms[conn.Room])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and releases its room. It is
// safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.rooms[conn.Room]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.rooms, conn.Room)
	}
	cm.mu.Unlock()

	cm.metrics.connectionClosed()
	if cm.source != nil {
		cm.source.Release(conn.Room)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("room", conn.Room).
		Msg("Spectator disconnected")
}

// BroadcastToRoom queues an event for every spectator of room
func (cm *ConnectionManager) BroadcastToRoom(room string, event *RoomEvent) {
	cm.enqueue(Broadcast{Room: room, Event: event})
}

// BroadcastToConnection queues an event for a single connection
func (cm *ConnectionManager) BroadcastToConnection(room, connectionID string, event *RoomEvent) {
	cm.enqueue(Broadcast{Room: room, Event: event, ConnectionID: connectionID})
}

func (cm *ConnectionManager) enqueue(message Broadcast) {
	select {
	case cm.broadcastCh <- message:
	default:
		cm.metrics.eventDropped("queue_full")
		log.Warn().
			Str("room", message.Room).
			Str("event_type", string(message.Event.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message Broadcast) {
	cm.mu.RLock()
	connections, exists := cm.rooms[message.Room]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	for conn := range connections {
		if message.ConnectionID != "" && conn.ID != message.ConnectionID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !cm.trySend(conn, eventData) {
			cm.metrics.eventDropped("slow_consumer")
			log.Warn().
				Str("connection_id", conn.ID).
				Str("room", conn.Room).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
	cm.metrics.eventSent(message.Event.Type, len(targets))

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room", message.Room).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend queues data without blocking. Send is only closed under cm.mu,
// so the read lock keeps it open for the duration of the send.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.rooms[conn.Room][conn] {
		return true
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

func (cm *ConnectionManager) sendSnapshot(conn *Connection) {
	if cm.source == nil {
		return
	}
	if event, ok := cm.source.Snapshot(conn.Room); ok {
		cm.BroadcastToConnection(conn.Room, conn.ID, event)
	}
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.rooms),
		RoomConnections: make(map[string]int, len(cm.rooms)),
	}
	for room, connections := range cm.rooms {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[room] = len(connections)
	}
	return stats
}

// writePump handles sending messages to the websocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the websocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage answers spectator commands. Spectators are read-only;
// the only commands are ping and a snapshot refresh.
func (c *Connection) handleClientMessage(message []byte) {
	if !c.limiter.Allow() {
		c.Manager.metrics.messageRateLimited()
		log.Warn().Str("connection_id", c.ID).Msg("client message rate limit exceeded")
		return
	}

	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client message")
		return
	}

	switch cmd.Type {
	case CommandPing:
		event, err := NewRoomEvent(c.Room, EventTypePong, struct{}{}, time.Now())
		if err != nil {
			return
		}
		c.Manager.BroadcastToConnection(c.Room, c.ID, event)
	case CommandSnapshot:
		c.Manager.sendSnapshot(c)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("command", cmd.Type).
			Msg("ignoring unknown client command")
	}
}
