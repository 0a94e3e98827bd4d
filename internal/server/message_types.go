package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth           MessageType = "auth"
	MessageTypeCreateRoom     MessageType = "create_room"
	MessageTypeJoinRoom       MessageType = "join_room"
	MessageTypeLeaveRoom      MessageType = "leave_room"
	MessageTypeTakeSeat       MessageType = "take_seat"
	MessageTypeLeaveSeat      MessageType = "leave_seat"
	MessageTypeStartRound     MessageType = "start_round"
	MessageTypePlaceBet       MessageType = "place_bet"
	MessageTypeClearBet       MessageType = "clear_bet"
	MessageTypeConfirmBet     MessageType = "confirm_bet"
	MessageTypeBuyInsurance   MessageType = "buy_insurance"
	MessageTypeHit            MessageType = "hit"
	MessageTypeStand          MessageType = "stand"
	MessageTypeDoubleDown     MessageType = "double_down"
	MessageTypeRequestChips   MessageType = "request_chips"
	MessageTypeApproveChips   MessageType = "approve_chips"
	MessageTypeRejectChips    MessageType = "reject_chips"
	MessageTypeForceReset     MessageType = "force_reset"
	MessageTypeEndSession     MessageType = "end_session"
	MessageTypeHandoverDealer MessageType = "handover_dealer"

	// Server to client messages
	MessageTypeError        MessageType = "error"
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeRoomJoined   MessageType = "room_joined"
	MessageTypeRoomLeft     MessageType = "room_left"
	MessageTypeRoomState    MessageType = "room_state"
	MessageTypeGameEvent    MessageType = "game_event"
	MessageTypeCountdown    MessageType = "countdown"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
