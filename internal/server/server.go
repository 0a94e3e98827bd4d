package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroom/blackjack/internal/blackjack"
)

// Server owns the WebSocket listener and the set of live connections.
// It doubles as the engine's Notifier: every room mutation fans out as
// a per-viewer redacted snapshot to the connections bound to that
// room.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	rooms       *RoomManager
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients connect from arbitrary origins;
				// deployments restrict this at the proxy.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRooms wires in the room registry. Must be called before Start.
func (s *Server) SetRooms(rooms *RoomManager) {
	s.rooms = rooms
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listener and closes every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, known := s.connections[conn]
			if known {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()

			if known {
				// Outside the lock: the room publishes back through
				// the notifier, which reads the connection set.
				s.detachFromRoom(conn)
				_ = conn.Close() // Ignore close errors during unregistration
			}
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// detachFromRoom unbinds a connection from its room, electing a
// still-connected member as successor for host and dealer privileges.
// The room is torn down when its last connection goes.
func (s *Server) detachFromRoom(conn *Connection) {
	roomID := conn.GetRoom()
	identity := conn.GetPlayer()
	if roomID == "" || identity == "" || s.rooms == nil {
		return
	}
	conn.SetRoom("")

	room, err := s.rooms.Get(roomID)
	if err != nil {
		return
	}

	successor := ""
	remaining := 0
	s.mu.RLock()
	for other := range s.connections {
		if other == conn || other.GetRoom() != roomID {
			continue
		}
		remaining++
		if successor == "" && other.GetPlayer() != "" {
			successor = other.GetPlayer()
		}
	}
	s.mu.RUnlock()

	if remaining == 0 {
		s.rooms.Remove(roomID)
		return
	}
	room.PlayerDisconnected(identity, successor)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// StateChanged implements blackjack.Notifier. Each member gets their
// own snapshot so hidden cards stay hidden per viewer.
func (s *Server) StateChanged(roomID string) {
	if s.rooms == nil {
		return
	}
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetRoom() != roomID {
			continue
		}
		view := room.Snapshot(conn.GetPlayer())
		msg, err := NewMessage(MessageTypeRoomState, view)
		if err != nil {
			s.logger.Error("Failed to encode room state", "error", err)
			return
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send room state", "error", err, "player", conn.GetPlayer())
		}
	}
}

// GameEvent implements blackjack.Notifier.
func (s *Server) GameEvent(roomID string, ev blackjack.Event) {
	msg, err := NewMessage(MessageTypeGameEvent, GameEventData{RoomID: roomID, Event: ev})
	if err != nil {
		s.logger.Error("Failed to encode game event", "error", err)
		return
	}
	s.broadcastToRoom(roomID, msg)
}

// CountdownTick implements blackjack.Notifier.
func (s *Server) CountdownTick(roomID string, remaining int, kind blackjack.CountdownKind) {
	msg, err := NewMessage(MessageTypeCountdown, CountdownData{RoomID: roomID, Remaining: remaining, Kind: kind})
	if err != nil {
		s.logger.Error("Failed to encode countdown", "error", err)
		return
	}
	s.broadcastToRoom(roomID, msg)
}

// broadcastToRoom sends a message to all connections bound to a room.
func (s *Server) broadcastToRoom(roomID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetRoom() == roomID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "player", conn.GetPlayer())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted message to room", "room", roomID, "type", msg.Type, "recipients", count)
}

// playerConnected reports whether an identity currently has a live
// connection bound to the room. Used to tell reconnects apart from
// name collisions.
func (s *Server) playerConnected(roomID, identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.GetRoom() == roomID && conn.GetPlayer() == identity {
			return true
		}
	}
	return false
}
