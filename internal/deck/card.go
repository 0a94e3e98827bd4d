package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Rank represents a card rank. Aces are low (1); Jack through King
// carry ranks 11-13 but count as 10 when scored.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// Card represents a playing card in the shoe. FaceDown cards are known
// to the engine but hidden from most viewers; Fresh marks a card dealt
// by the most recent action so clients can pace their animation.
type Card struct {
	Suit     Suit `json:"suit"`
	Rank     Rank `json:"rank"`
	FaceDown bool `json:"faceDown,omitempty"`
	Fresh    bool `json:"fresh,omitempty"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// Points returns the blackjack value of the card with aces counted
// low. The scorer promotes aces to 11 where that does not bust.
func (c Card) Points() int {
	if c.Rank > Ten {
		return 10
	}
	return int(c.Rank)
}
