package blackjack

import "github.com/cardroom/blackjack/internal/deck"

// SeatResult reports one seat's primary-bet outcome.
type SeatResult struct {
	Seat   int        `json:"seat"`
	Status SeatStatus `json:"status"`
	Net    int        `json:"net"`
}

// Settlement is the outcome of one round: per-seat primary results and
// the accumulated profit/loss per identity across every wager they
// held (primary, behind and insurance).
type Settlement struct {
	Results []SeatResult   `json:"results"`
	Totals  map[string]int `json:"totals"`
}

// multiplier evaluates the casino outcome rules in strict priority
// order. dealerScore is the dealer's raw score (may exceed 21).
func multiplier(playerScore int, playerBJ bool, dealerScore int, dealerBJ bool) float64 {
	dealerEffective := dealerScore
	if dealerScore > 21 {
		dealerEffective = 0
	}
	switch {
	case playerScore > 21:
		// A busted player loses no matter what the dealer holds.
		return -1
	case playerBJ && dealerBJ:
		return 0
	case playerBJ:
		return 1.5
	case dealerBJ:
		return -1
	case dealerScore > 21:
		return 1
	case playerScore > dealerEffective:
		return 1
	case playerScore < dealerEffective:
		return -1
	default:
		return 0
	}
}

// settleHands applies the round outcome to the ledger. Each wager
// settles against the dealer identity, so every balance delta inside
// this call is matched by an equal and opposite dealer delta and the
// room's total balance is conserved. Callers invoke it exactly once
// per round; it never rejects.
func settleHands(seats []*Seat, dealerCards []deck.Card, ledger *Ledger, dealerID string) Settlement {
	dealerScore := Score(dealerCards, true)
	dealerBJ := IsBlackjack(dealerCards)
	dealer, _ := ledger.Get(dealerID)

	out := Settlement{Totals: make(map[string]int)}
	for _, p := range ledger.All() {
		out.Totals[p.ID] = 0
	}

	credit := func(id string, balanceDelta, total int) {
		if p, ok := ledger.Get(id); ok {
			p.Balance += balanceDelta
			p.PnL += total
		}
		out.Totals[id] += total
	}
	debitDealer := func(balanceDelta, total int) {
		if dealer != nil {
			dealer.Balance -= balanceDelta
			dealer.PnL -= total
		}
		out.Totals[dealerID] -= total
	}

	settleInsurance := func(owner string, stake int) {
		if stake == 0 {
			return
		}
		if dealerBJ {
			// 2x the stake comes back; the purchase already debited
			// 1x, so the payer nets +1x and the dealer the negative.
			credit(owner, 2*stake, stake)
			debitDealer(stake, stake)
		} else {
			// The stake was debited at purchase time and forfeits to
			// the dealer; the payer sees no further debit.
			credit(owner, 0, -stake)
			debitDealer(-stake, -stake)
		}
	}
	settleWager := func(owner string, stake int, m float64) int {
		net := int(float64(stake) * m)
		// Stake returned plus or minus winnings; the dealer moves by
		// the exact negative of the net change.
		credit(owner, stake+net, net)
		debitDealer(net, net)
		return net
	}

	for idx, seat := range seats {
		if seat == nil || seat.Status == StatusWaitingNext || !seat.HasWager() {
			continue
		}

		playerScore := Score(seat.Cards, true)
		m := multiplier(playerScore, IsBlackjack(seat.Cards), dealerScore, dealerBJ)

		settleInsurance(seat.Owner, seat.Insurance)

		if seat.Bet > 0 {
			net := settleWager(seat.Owner, seat.Bet, m)
			switch {
			case m > 0:
				seat.Status = StatusWon
			case m < 0:
				seat.Status = StatusLost
			default:
				seat.Status = StatusPush
			}
			out.Results = append(out.Results, SeatResult{Seat: idx, Status: seat.Status, Net: net})
		} else {
			seat.Status = StatusPush
		}

		for _, b := range seat.Behind {
			settleInsurance(b.Owner, b.Insurance)
			if b.Amount > 0 {
				settleWager(b.Owner, b.Amount, m)
			}
		}
	}

	return out
}
