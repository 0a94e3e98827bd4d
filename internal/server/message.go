package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cardroom/blackjack/internal/blackjack"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type SeatData struct {
	Seat int `json:"seat"`
}

type WagerData struct {
	Seat   int    `json:"seat"`
	Kind   string `json:"kind,omitempty"` // "main" (default) or "behind"
	Amount int    `json:"amount,omitempty"`
}

type ChipRequestData struct {
	Amount int `json:"amount"`
}

type ChipDecisionData struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

type HandoverData struct {
	NewDealerID string `json:"newDealerId"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomJoinedData struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Rejoined bool   `json:"rejoined"`
}

type RoomLeftData struct {
	RoomID string `json:"roomId"`
}

type GameEventData struct {
	RoomID string          `json:"roomId"`
	Event  blackjack.Event `json:"event"`
}

type CountdownData struct {
	RoomID    string                  `json:"roomId"`
	Remaining int                     `json:"remaining"`
	Kind      blackjack.CountdownKind `json:"kind"`
}

// Room state messages carry a blackjack.RoomView, already redacted
// for the receiving viewer.

// errorCode maps engine errors to stable protocol error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, blackjack.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, blackjack.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, blackjack.ErrNotHost):
		return "not_host"
	case errors.Is(err, blackjack.ErrNotDealer):
		return "not_dealer"
	case errors.Is(err, blackjack.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, blackjack.ErrAlreadyConfirmed):
		return "already_confirmed"
	case errors.Is(err, blackjack.ErrSeatOccupied):
		return "seat_occupied"
	case errors.Is(err, blackjack.ErrSeatEmpty):
		return "seat_empty"
	case errors.Is(err, blackjack.ErrUnknownPlayer):
		return "unknown_player"
	case blackjack.IsShoeError(err):
		return "shoe_exhausted"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrNameTaken):
		return "name_taken"
	default:
		return "internal_error"
	}
}
