package blackjack

// EventType represents a discrete game event marker published to the
// transport layer alongside state snapshots.
type EventType string

const (
	EventTypeCardDealt       EventType = "card_dealt"
	EventTypePlayerBust      EventType = "player_bust"
	EventTypePlayerBlackjack EventType = "player_blackjack"
	EventTypeDoubleDown      EventType = "double_down"
	EventTypeShuffleStarted  EventType = "shuffle_started"
	EventTypeHandSettled     EventType = "hand_settled"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is a discrete marker published after a room mutation. Seat is
// the affected seat index where that makes sense (NoSeat for dealer or
// table-wide events). Settlement carries the round results on
// hand_settled events only.
type Event struct {
	Type       EventType   `json:"type"`
	Seat       int         `json:"seat"`
	Settlement *Settlement `json:"settlement,omitempty"`
}

// CountdownKind identifies what an active countdown gates.
type CountdownKind string

const (
	CountdownNone    CountdownKind = ""
	CountdownBetting CountdownKind = "betting"
	CountdownAction  CountdownKind = "action"
)

// Notifier is the channel the engine publishes through. The transport
// layer re-broadcasts state changes as per-viewer redacted snapshots.
// Notifier methods are always invoked outside the room lock, so
// implementations may call back into Room.Snapshot.
type Notifier interface {
	StateChanged(roomID string)
	GameEvent(roomID string, ev Event)
	CountdownTick(roomID string, remaining int, kind CountdownKind)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) StateChanged(string)                      {}
func (NopNotifier) GameEvent(string, Event)                  {}
func (NopNotifier) CountdownTick(string, int, CountdownKind) {}
