package server

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroom/blackjack/internal/blackjack"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNameTaken    = errors.New("name already in use in this room")
)

// roomCodeAlphabet omits easily-confused characters (0/O, 1/I/L).
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const roomCodeLength = 4

// RoomManager is the registry of live tables, keyed by short join
// code. Each room gets its own RNG stream so room-level shuffles never
// contend on a shared source.
type RoomManager struct {
	mu       sync.Mutex
	rooms    map[string]*blackjack.Room
	rules    blackjack.Rules
	clock    quartz.Clock
	rng      *rand.Rand
	notifier blackjack.Notifier
	logger   *log.Logger
}

// NewRoomManager creates an empty registry.
func NewRoomManager(rules blackjack.Rules, clock quartz.Clock, rng *rand.Rand, notifier blackjack.Notifier, logger *log.Logger) *RoomManager {
	return &RoomManager{
		rooms:    make(map[string]*blackjack.Room),
		rules:    rules,
		clock:    clock,
		rng:      rng,
		notifier: notifier,
		logger:   logger.WithPrefix("rooms"),
	}
}

// Create opens a new room with the given identity as host and dealer.
func (m *RoomManager) Create(hostID, hostName string) *blackjack.Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.generateCodeLocked()
	roomRNG := rand.New(rand.NewSource(m.rng.Int63()))
	room := blackjack.NewRoom(code, hostID, hostName, m.rules, m.clock, roomRNG, m.notifier, m.logger)
	m.rooms[code] = room
	m.logger.Info("Room created", "room", code, "host", hostName)
	return room
}

// Get looks up a room by its join code.
func (m *RoomManager) Get(id string) (*blackjack.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove deletes a room and invalidates its timers. Called when the
// last connection bound to the room drops.
func (m *RoomManager) Remove(id string) {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	if ok {
		room.Shutdown()
		m.logger.Info("Room removed", "room", id)
	}
}

// Count returns the number of live rooms.
func (m *RoomManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *RoomManager) generateCodeLocked() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeAlphabet[m.rng.Intn(len(roomCodeAlphabet))]
		}
		if _, exists := m.rooms[string(code)]; !exists {
			return string(code)
		}
	}
}
