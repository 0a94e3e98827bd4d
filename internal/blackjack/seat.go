package blackjack

import "github.com/cardroom/blackjack/internal/deck"

// SeatStatus tracks where a seat is in the round.
type SeatStatus string

const (
	StatusWaiting     SeatStatus = "waiting"
	StatusBetting     SeatStatus = "betting"
	StatusPlaying     SeatStatus = "playing"
	StatusStood       SeatStatus = "stood"
	StatusBust        SeatStatus = "bust"
	StatusBlackjack   SeatStatus = "blackjack"
	StatusWon         SeatStatus = "won"
	StatusLost        SeatStatus = "lost"
	StatusPush        SeatStatus = "push"
	StatusWaitingNext SeatStatus = "waiting_next"
)

// SideBet is a spectator's wager riding on another player's seat. The
// records are kept as an ordered slice tagged with the owning identity
// so iteration order is stable.
type SideBet struct {
	Owner     string `json:"owner"`
	Amount    int    `json:"amount"`
	Insurance int    `json:"insurance"`
	Confirmed bool   `json:"confirmed"`
}

// Seat is one of the five player positions at the table.
type Seat struct {
	Owner        string
	Status       SeatStatus
	Cards        []deck.Card
	Bet          int
	Insurance    int
	Behind       []*SideBet
	BetConfirmed bool
	Doubled      bool
}

// NewSeat claims a seat for a player.
func NewSeat(owner string, status SeatStatus) *Seat {
	return &Seat{Owner: owner, Status: status}
}

// BehindBet returns the side-bet record owned by the given identity.
func (s *Seat) BehindBet(owner string) *SideBet {
	for _, b := range s.Behind {
		if b.Owner == owner {
			return b
		}
	}
	return nil
}

// RemoveBehindBet drops the side-bet record owned by the given
// identity, if any.
func (s *Seat) RemoveBehindBet(owner string) {
	for i, b := range s.Behind {
		if b.Owner == owner {
			s.Behind = append(s.Behind[:i], s.Behind[i+1:]...)
			return
		}
	}
}

// HasWager reports whether the seat carries a primary bet or at least
// one non-zero side-bet. Seats without a wager take no cards.
func (s *Seat) HasWager() bool {
	if s.Bet > 0 {
		return true
	}
	for _, b := range s.Behind {
		if b.Amount > 0 {
			return true
		}
	}
	return false
}

// ResetForBetting wipes the seat's hand and wagers at the start of a
// betting phase.
func (s *Seat) ResetForBetting() {
	s.Cards = nil
	s.Bet = 0
	s.Insurance = 0
	s.Behind = nil
	s.Status = StatusBetting
	s.BetConfirmed = false
	s.Doubled = false
}

// ClearForWaiting wipes the seat back to idle without touching the
// owner, used by the host's force reset.
func (s *Seat) ClearForWaiting() {
	s.Cards = nil
	s.Bet = 0
	s.Insurance = 0
	s.Behind = nil
	s.Status = StatusWaiting
	s.BetConfirmed = false
	s.Doubled = false
}
