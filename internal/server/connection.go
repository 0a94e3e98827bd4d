package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cardroom/blackjack/internal/blackjack"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	name      string
	playerID  string
	roomID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	hub       *Server
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, hub *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		hub:    hub,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// send was closed under us, which happens during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a logical player identity
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated logical player identity
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetName records the authenticated display name
func (c *Connection) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// GetName returns the authenticated display name
func (c *Connection) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom returns the associated room ID
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeCreateRoom:
		c.handleCreateRoom()

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		c.handleLeaveRoom()

	case MessageTypeTakeSeat:
		c.handleSeatCommand(msg, func(room *blackjack.Room, id string, seat int) error {
			return room.TakeSeat(id, seat)
		})

	case MessageTypeLeaveSeat:
		c.handleSeatCommand(msg, func(room *blackjack.Room, id string, seat int) error {
			return room.LeaveSeat(id, seat)
		})

	case MessageTypeStartRound:
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.StartBetting(id)
		})

	case MessageTypePlaceBet:
		c.handleWagerCommand(msg, func(room *blackjack.Room, id string, data WagerData) error {
			return room.PlaceBet(id, data.Seat, betKind(data.Kind), data.Amount)
		})

	case MessageTypeClearBet:
		c.handleWagerCommand(msg, func(room *blackjack.Room, id string, data WagerData) error {
			return room.ClearBet(id, data.Seat, betKind(data.Kind))
		})

	case MessageTypeConfirmBet:
		c.handleWagerCommand(msg, func(room *blackjack.Room, id string, data WagerData) error {
			return room.ConfirmBet(id, data.Seat, betKind(data.Kind))
		})

	case MessageTypeBuyInsurance:
		c.handleWagerCommand(msg, func(room *blackjack.Room, id string, data WagerData) error {
			return room.BuyInsurance(id, data.Seat, betKind(data.Kind))
		})

	case MessageTypeHit:
		c.handleSeatCommand(msg, func(room *blackjack.Room, id string, seat int) error {
			return room.Hit(id, seat)
		})

	case MessageTypeStand:
		c.handleSeatCommand(msg, func(room *blackjack.Room, id string, seat int) error {
			return room.Stand(id, seat)
		})

	case MessageTypeDoubleDown:
		c.handleSeatCommand(msg, func(room *blackjack.Room, id string, seat int) error {
			return room.DoubleDown(id, seat)
		})

	case MessageTypeRequestChips:
		var data ChipRequestData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chip request data")
			return
		}
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.RequestChips(id, data.Amount)
		})

	case MessageTypeApproveChips:
		var data ChipDecisionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chip decision data")
			return
		}
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.ApproveChips(id, data.PlayerID, data.Amount)
		})

	case MessageTypeRejectChips:
		var data ChipDecisionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chip decision data")
			return
		}
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.RejectChips(id, data.PlayerID, data.Amount)
		})

	case MessageTypeForceReset:
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.ForceReset(id)
		})

	case MessageTypeEndSession:
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.EndSession(id)
		})

	case MessageTypeHandoverDealer:
		var data HandoverData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse handover data")
			return
		}
		c.handleRoomCommand(func(room *blackjack.Room, id string) error {
			return room.HandoverDealer(id, data.NewDealerID)
		})

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func betKind(kind string) blackjack.BetKind {
	if kind == string(blackjack.BetBehind) {
		return blackjack.BetBehind
	}
	return blackjack.BetMain
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) sendCommandError(err error) {
	c.sendError(errorCode(err), err.Error())
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetName(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

// boundRoom resolves the caller's room, enforcing auth and membership.
func (c *Connection) boundRoom() (*blackjack.Room, string, bool) {
	if c.GetName() == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return nil, "", false
	}
	roomID := c.GetRoom()
	if roomID == "" {
		c.sendError("no_room", "Join a room first")
		return nil, "", false
	}
	room, err := c.hub.rooms.Get(roomID)
	if err != nil {
		c.sendCommandError(err)
		return nil, "", false
	}
	return room, c.GetPlayer(), true
}

func (c *Connection) handleRoomCommand(fn func(room *blackjack.Room, id string) error) {
	room, id, ok := c.boundRoom()
	if !ok {
		return
	}
	if err := fn(room, id); err != nil {
		c.sendCommandError(err)
	}
}

func (c *Connection) handleSeatCommand(msg *Message, fn func(room *blackjack.Room, id string, seat int) error) {
	var data SeatData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError("invalid_message", "Failed to parse seat data")
		return
	}
	c.handleRoomCommand(func(room *blackjack.Room, id string) error {
		return fn(room, id, data.Seat)
	})
}

func (c *Connection) handleWagerCommand(msg *Message, fn func(room *blackjack.Room, id string, data WagerData) error) {
	var data WagerData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError("invalid_message", "Failed to parse wager data")
		return
	}
	c.handleRoomCommand(func(room *blackjack.Room, id string) error {
		return fn(room, id, data)
	})
}

func (c *Connection) handleCreateRoom() {
	name := c.GetName()
	if name == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	if c.GetRoom() != "" {
		c.sendError("already_in_room", "Leave the current room first")
		return
	}

	identity := uuid.NewString()
	room := c.hub.rooms.Create(identity, name)
	c.SetPlayer(identity)
	c.SetRoom(room.ID)

	c.logger.Info("Room created", "room", room.ID, "player", name)

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:   room.ID,
		PlayerID: identity,
	})
	_ = c.SendMessage(response) // Ignore send errors
	c.hub.StateChanged(room.ID)
}

// handleJoinRoom binds the connection to a room. A name already known
// to the room reclaims its old identity — seat, balance and hand
// included — as long as that identity is not connected elsewhere.
func (c *Connection) handleJoinRoom(data JoinRoomData) {
	name := c.GetName()
	if name == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	if c.GetRoom() != "" {
		c.sendError("already_in_room", "Leave the current room first")
		return
	}

	room, err := c.hub.rooms.Get(data.RoomID)
	if err != nil {
		c.sendCommandError(err)
		return
	}

	rejoined := false
	identity, known := room.HasPlayerName(name)
	if known {
		if c.hub.playerConnected(room.ID, identity) {
			c.sendCommandError(ErrNameTaken)
			return
		}
		rejoined = true
	} else {
		identity = uuid.NewString()
	}

	c.SetPlayer(identity)
	c.SetRoom(room.ID)

	if !rejoined {
		room.AddPlayer(identity, name)
	}

	c.logger.Info("Joined room", "room", room.ID, "player", name, "rejoined", rejoined)

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:   room.ID,
		PlayerID: identity,
		Rejoined: rejoined,
	})
	_ = c.SendMessage(response) // Ignore send errors
	c.hub.StateChanged(room.ID)
}

func (c *Connection) handleLeaveRoom() {
	roomID := c.GetRoom()
	if roomID == "" {
		c.sendError("no_room", "Not in a room")
		return
	}

	c.hub.detachFromRoom(c)
	c.SetPlayer("")

	response, _ := NewMessage(MessageTypeRoomLeft, RoomLeftData{RoomID: roomID})
	_ = c.SendMessage(response) // Ignore send errors
}
