package blackjack

// Player is one ledger entry in a room. ID is the stable logical
// identity that survives reconnects; the transport layer maps
// connections onto it, so a reconnect is a pure rebinding and never a
// data migration.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int    `json:"balance"`
	PnL     int    `json:"pnl"`
}

// Ledger is the identity directory for a room. Iteration order is the
// order players joined, which keeps conservation checks and view
// output deterministic.
type Ledger struct {
	players map[string]*Player
	order   []string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{players: make(map[string]*Player)}
}

// Add registers a player with a zero balance. Adding an existing ID
// returns the existing entry unchanged.
func (l *Ledger) Add(id, name string) *Player {
	if p, ok := l.players[id]; ok {
		return p
	}
	p := &Player{ID: id, Name: name}
	l.players[id] = p
	l.order = append(l.order, id)
	return p
}

// Get looks up a player by logical ID.
func (l *Ledger) Get(id string) (*Player, bool) {
	p, ok := l.players[id]
	return p, ok
}

// ByName looks up a player by display name.
func (l *Ledger) ByName(name string) (*Player, bool) {
	for _, id := range l.order {
		if l.players[id].Name == name {
			return l.players[id], true
		}
	}
	return nil, false
}

// All returns players in join order.
func (l *Ledger) All() []*Player {
	out := make([]*Player, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.players[id])
	}
	return out
}

// ChipRequest is a pending request for the dealer to grant chips.
type ChipRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
}
