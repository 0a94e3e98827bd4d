package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/blackjack/internal/deck"
)

func TestMultiplierPriority(t *testing.T) {
	tests := []struct {
		name        string
		playerScore int
		playerBJ    bool
		dealerScore int
		dealerBJ    bool
		want        float64
	}{
		{"player bust loses even to dealer bust", 22, false, 25, false, -1},
		{"player bust loses to dealer blackjack", 23, false, 21, true, -1},
		{"both blackjack pushes", 21, true, 21, true, 0},
		{"player blackjack pays 3:2", 21, true, 20, false, 1.5},
		{"player blackjack beats dealer 21", 21, true, 21, false, 1.5},
		{"dealer blackjack beats player 21", 21, false, 21, true, -1},
		{"dealer bust pays even", 12, false, 22, false, 1},
		{"higher score wins", 19, false, 18, false, 1},
		{"lower score loses", 17, false, 18, false, -1},
		{"equal scores push", 18, false, 18, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := multiplier(tc.playerScore, tc.playerBJ, tc.dealerScore, tc.dealerBJ)
			assert.Equal(t, tc.want, got)
		})
	}
}

// settlementFixture builds a ledger where stakes have already been
// escrowed out of each balance, the way the room debits at bet time.
type settlementFixture struct {
	ledger *Ledger
	seats  [NumSeats]*Seat
	escrow int
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{ledger: NewLedger()}
	dealer := f.ledger.Add("dealer", "Dealer")
	dealer.Balance = 100000
	return f
}

func (f *settlementFixture) player(id string, balance int) {
	p := f.ledger.Add(id, id)
	p.Balance = balance
}

func (f *settlementFixture) escrowFrom(id string, amount int) int {
	p, _ := f.ledger.Get(id)
	p.Balance -= amount
	f.escrow += amount
	return amount
}

func (f *settlementFixture) total() int {
	sum := 0
	for _, p := range f.ledger.All() {
		sum += p.Balance
	}
	return sum
}

func (f *settlementFixture) settle(dealerCards []deck.Card) Settlement {
	return settleHands(f.seats[:], dealerCards, f.ledger, "dealer")
}

func TestSettleBlackjackAgainstDealerTwenty(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.seats[0] = &Seat{
		Owner:  "alice",
		Status: StatusBlackjack,
		Cards:  cards(deck.Ace, deck.King),
		Bet:    f.escrowFrom("alice", 100),
	}

	s := f.settle(cards(deck.King, deck.Queen))

	alice, _ := f.ledger.Get("alice")
	dealer, _ := f.ledger.Get("dealer")
	assert.Equal(t, 1150, alice.Balance)
	assert.Equal(t, 99850, dealer.Balance)
	assert.Equal(t, 150, s.Totals["alice"])
	assert.Equal(t, -150, s.Totals["dealer"])
	assert.Equal(t, StatusWon, f.seats[0].Status)

	require.Len(t, s.Results, 1)
	assert.Equal(t, SeatResult{Seat: 0, Status: StatusWon, Net: 150}, s.Results[0])
}

func TestSettleInsurancePaysOnDealerBlackjack(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.seats[0] = &Seat{
		Owner:     "alice",
		Status:    StatusStood,
		Cards:     cards(deck.Nine, deck.Five),
		Bet:       f.escrowFrom("alice", 100),
		Insurance: f.escrowFrom("alice", 50),
	}

	s := f.settle(cards(deck.Ace, deck.King))

	// The primary bet loses 100, insurance nets +50.
	alice, _ := f.ledger.Get("alice")
	assert.Equal(t, 950, alice.Balance)
	assert.Equal(t, -50, s.Totals["alice"])
	assert.Equal(t, 50, s.Totals["dealer"])
}

func TestSettleInsuranceForfeitsWithoutDealerBlackjack(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.seats[0] = &Seat{
		Owner:     "alice",
		Status:    StatusStood,
		Cards:     cards(deck.King, deck.Nine),
		Bet:       f.escrowFrom("alice", 100),
		Insurance: f.escrowFrom("alice", 50),
	}

	s := f.settle(cards(deck.Ace, deck.Seven)) // dealer 18, no natural

	// Bet wins 100 at even money, insurance stake goes to the house.
	alice, _ := f.ledger.Get("alice")
	assert.Equal(t, 1050, alice.Balance)
	assert.Equal(t, 50, s.Totals["alice"])
	assert.Equal(t, -50, s.Totals["dealer"])
}

func TestSettleBehindBetsFollowTheSeat(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.player("bob", 500)
	f.seats[2] = &Seat{
		Owner:  "alice",
		Status: StatusStood,
		Cards:  cards(deck.King, deck.Nine),
		Bet:    f.escrowFrom("alice", 100),
		Behind: []*SideBet{
			{Owner: "bob", Amount: f.escrowFrom("bob", 80)},
		},
	}

	s := f.settle(cards(deck.King, deck.Seven)) // dealer 17

	alice, _ := f.ledger.Get("alice")
	bob, _ := f.ledger.Get("bob")
	assert.Equal(t, 1100, alice.Balance)
	assert.Equal(t, 580, bob.Balance)
	assert.Equal(t, 80, s.Totals["bob"])
	assert.Equal(t, -180, s.Totals["dealer"])
}

func TestSettleBehindOnlySeatPushesThePrincipal(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.player("bob", 500)
	f.seats[0] = &Seat{
		Owner:  "alice",
		Status: StatusStood,
		Cards:  cards(deck.King, deck.Five),
		Behind: []*SideBet{
			{Owner: "bob", Amount: f.escrowFrom("bob", 80)},
		},
	}

	s := f.settle(cards(deck.King, deck.Nine)) // dealer 19 beats 15

	// No principal at stake: the owner neither wins nor loses, the
	// behind bet settles on its own.
	alice, _ := f.ledger.Get("alice")
	bob, _ := f.ledger.Get("bob")
	assert.Equal(t, 1000, alice.Balance)
	assert.Equal(t, 420, bob.Balance)
	assert.Equal(t, StatusPush, f.seats[0].Status)
	assert.Empty(t, s.Results)
}

func TestSettleSkipsIdleSeats(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.seats[1] = &Seat{Owner: "alice", Status: StatusWaitingNext}

	s := f.settle(cards(deck.King, deck.Nine))
	assert.Empty(t, s.Results)
	alice, _ := f.ledger.Get("alice")
	assert.Equal(t, 1000, alice.Balance)
}

// The room debits every stake into escrow when placed; settlement
// returns each stake adjusted by the outcome, with the dealer covering
// the exact inverse. The table's total must therefore come back to its
// pre-bet level, and the settlement totals must sum to zero.
func TestSettleConservesTotalBalance(t *testing.T) {
	f := newSettlementFixture()
	f.player("alice", 1000)
	f.player("bob", 500)
	f.player("carol", 700)
	before := f.total()

	f.seats[4] = &Seat{
		Owner:     "alice",
		Status:    StatusBlackjack,
		Cards:     cards(deck.Ace, deck.Queen),
		Bet:       f.escrowFrom("alice", 200),
		Insurance: f.escrowFrom("alice", 100),
		Behind: []*SideBet{
			{Owner: "carol", Amount: f.escrowFrom("carol", 60)},
		},
	}
	f.seats[1] = &Seat{
		Owner:  "bob",
		Status: StatusBust,
		Cards:  cards(deck.King, deck.Nine, deck.Five),
		Bet:    f.escrowFrom("bob", 150),
	}

	s := f.settle(cards(deck.Ten, deck.Seven)) // dealer 17

	assert.Equal(t, before, f.total(), "every chip debited must land somewhere")

	sum := 0
	for _, net := range s.Totals {
		sum += net
	}
	assert.Zero(t, sum, "settlement is zero-sum across all identities")
}
