package blackjack

import "time"

// Rules holds the table's timing and payout parameters. Durations are
// measured on the room's injected clock so tests can drive them.
type Rules struct {
	Decks          int // decks per shoe
	ReshuffleAt    int // rebuild the shoe below this many cards
	BetSeconds     int // betting countdown
	ActionSeconds  int // per-decision and insurance countdown
	DealerBankroll int // balance granted to a new dealer on handover

	ShuffleDelay   time.Duration // betting start delay after a reshuffle
	DealPace       time.Duration // gap between initial deal cards
	DealFinish     time.Duration // gap after the last initial card before evaluation
	DealerPace     time.Duration // gap between forced dealer draws
	RevealDelay    time.Duration // pause after the hole card is revealed
	SettleDelay    time.Duration // pause before settlement results go out
	BustGrace      time.Duration // pause on a seat bust before the turn advances
	TwentyOneGrace time.Duration // pause when a seat reaches 21 before advancing
	DoubleGrace    time.Duration // pause after a double-down resolves
	InsuranceDelay time.Duration // pause after insurance resolves
}

// DefaultRules returns the house configuration: an 8-deck shoe,
// 10-second decision windows, and the standard bankroll.
func DefaultRules() Rules {
	return Rules{
		Decks:          8,
		ReshuffleAt:    50,
		BetSeconds:     10,
		ActionSeconds:  10,
		DealerBankroll: 100000,

		ShuffleDelay:   3 * time.Second,
		DealPace:       600 * time.Millisecond,
		DealFinish:     500 * time.Millisecond,
		DealerPace:     1200 * time.Millisecond,
		RevealDelay:    1500 * time.Millisecond,
		SettleDelay:    2 * time.Second,
		BustGrace:      1500 * time.Millisecond,
		TwentyOneGrace: time.Second,
		DoubleGrace:    2 * time.Second,
		InsuranceDelay: 2 * time.Second,
	}
}
