package blackjack

import (
	"testing"

	"github.com/cardroom/blackjack/internal/deck"
)

func cards(ranks ...deck.Rank) []deck.Card {
	out := make([]deck.Card, len(ranks))
	for i, r := range ranks {
		out[i] = deck.NewCard(deck.Spades, r)
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		hand []deck.Card
		want int
	}{
		{name: "empty hand", hand: nil, want: 0},
		{name: "natural", hand: cards(deck.Ace, deck.King), want: 21},
		{name: "two aces", hand: cards(deck.Ace, deck.Ace), want: 12},
		{name: "three card twenty one", hand: cards(deck.Ace, deck.Ace, deck.Nine), want: 21},
		{name: "face cards count ten", hand: cards(deck.Jack, deck.Queen), want: 20},
		{name: "forced hard ace", hand: cards(deck.Ace, deck.Nine, deck.Five), want: 15},
		{name: "bust", hand: cards(deck.King, deck.Queen, deck.Five), want: 25},
		{name: "soft seventeen", hand: cards(deck.Ace, deck.Six), want: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.hand, true); got != tt.want {
				t.Errorf("Score(%v) = %d, want %d", tt.hand, got, tt.want)
			}
		})
	}
}

func TestScoreOrderInvariant(t *testing.T) {
	a := cards(deck.Ace, deck.Nine, deck.Five)
	b := cards(deck.Five, deck.Ace, deck.Nine)
	if Score(a, true) != Score(b, true) {
		t.Errorf("score depends on card order: %d vs %d", Score(a, true), Score(b, true))
	}
}

func TestScoreExcludesHidden(t *testing.T) {
	hand := cards(deck.Ace, deck.King)
	hand[1].FaceDown = true

	if got := Score(hand, false); got != 11 {
		t.Errorf("Score without hidden = %d, want 11", got)
	}
	if got := Score(hand, true); got != 21 {
		t.Errorf("Score with hidden = %d, want 21", got)
	}
}

func TestScoreDisplay(t *testing.T) {
	tests := []struct {
		name string
		hand []deck.Card
		want string
	}{
		{name: "empty", hand: nil, want: "0"},
		{name: "no aces", hand: cards(deck.Nine, deck.Seven), want: "16"},
		{name: "soft reading", hand: cards(deck.Ace, deck.Five), want: "6/16"},
		{name: "soft twenty one collapses", hand: cards(deck.Ace, deck.King), want: "21"},
		{name: "hard ace", hand: cards(deck.Ace, deck.Nine, deck.Five), want: "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreDisplay(tt.hand, true); got != tt.want {
				t.Errorf("ScoreDisplay(%v) = %q, want %q", tt.hand, got, tt.want)
			}
		})
	}
}

func TestIsBlackjack(t *testing.T) {
	if !IsBlackjack(cards(deck.Ace, deck.King)) {
		t.Error("A,K should be blackjack")
	}
	if IsBlackjack(cards(deck.Ace, deck.Ace, deck.Nine)) {
		t.Error("three-card 21 is not blackjack")
	}
	if IsBlackjack(cards(deck.King, deck.Queen)) {
		t.Error("20 is not blackjack")
	}
}
