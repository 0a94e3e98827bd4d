package deck

import (
	"errors"
	"math/rand"
)

// ErrShoeExhausted is returned when a draw is attempted on an empty
// shoe. The engine reshuffles before this can happen in normal play.
var ErrShoeExhausted = errors.New("shoe exhausted")

// DecksPerShoe is the number of 52-card decks a table shoe holds.
const DecksPerShoe = 8

// Shoe is a multi-deck card source for one table.
type Shoe struct {
	cards []Card
	decks int
	rng   *rand.Rand
}

// NewShoe builds a shoe from the given number of full decks and
// shuffles it.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	s := &Shoe{
		cards: make([]Card, 0, decks*52),
		decks: decks,
		rng:   rng,
	}
	s.Rebuild()
	return s
}

// Rebuild restores the shoe to its full composition and shuffles.
func (s *Shoe) Rebuild() {
	s.cards = s.cards[:0]
	for i := 0; i < s.decks; i++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Ace; rank <= King; rank++ {
				s.cards = append(s.cards, NewCard(suit, rank))
			}
		}
	}
	s.shuffle()
}

// shuffle is a Fisher-Yates shuffle over the whole shoe.
func (s *Shoe) shuffle() {
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Load replaces the shoe's contents with the given cards, top of the
// shoe last. Intended for rigging deterministic deals in tests.
func (s *Shoe) Load(cards ...Card) {
	s.cards = append(s.cards[:0], cards...)
}

// Draw removes and returns the top card, marking it face-down as
// requested. Every drawn card starts out Fresh.
func (s *Shoe) Draw(faceDown bool) (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, ErrShoeExhausted
	}
	card := s.cards[len(s.cards)-1]
	s.cards = s.cards[:len(s.cards)-1]
	card.FaceDown = faceDown
	card.Fresh = true
	return card, nil
}

// Remaining returns the number of cards left in the shoe.
func (s *Shoe) Remaining() int {
	return len(s.cards)
}
