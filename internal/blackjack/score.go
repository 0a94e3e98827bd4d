package blackjack

import (
	"fmt"

	"github.com/cardroom/blackjack/internal/deck"
)

// Score computes the blackjack value of a hand. Every ace starts at 11
// and is demoted to 1, one at a time, while the total busts. When
// includeHidden is false, face-down cards are omitted from the sum
// entirely, which is what every viewer other than the dealer sees.
func Score(cards []deck.Card, includeHidden bool) int {
	score, aces := 0, 0
	for _, c := range cards {
		if c.FaceDown && !includeHidden {
			continue
		}
		if c.IsAce() {
			aces++
			score += 11
		} else {
			score += c.Points()
		}
	}
	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}
	return score
}

// ScoreDisplay renders a hand's score for humans. Hands with a usable
// ace show both readings ("6/16"); a soft total of exactly 21 shows
// just "21"; otherwise the hard total.
func ScoreDisplay(cards []deck.Card, includeHidden bool) string {
	sum, aces := 0, 0
	visible := false
	for _, c := range cards {
		if c.FaceDown && !includeHidden {
			continue
		}
		visible = true
		sum += c.Points()
		if c.IsAce() {
			aces++
		}
	}
	if !visible {
		return "0"
	}
	if aces == 0 {
		return fmt.Sprintf("%d", sum)
	}
	soft := sum + 10
	switch {
	case soft > 21:
		return fmt.Sprintf("%d", sum)
	case soft == 21:
		return "21"
	default:
		return fmt.Sprintf("%d/%d", sum, soft)
	}
}

// IsBlackjack reports whether a hand is a natural: exactly two cards
// scoring 21.
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && Score(cards, true) == 21
}
