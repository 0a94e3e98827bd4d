package blackjack

import (
	"errors"
	"time"

	"github.com/cardroom/blackjack/internal/deck"
)

// StartBetting opens a betting phase. Dealer only, from waiting or
// settled. When the shoe is nearly exhausted it is rebuilt first and
// the betting start is delayed so viewers see the shuffle; no cards
// leave the new shoe until the delay elapses.
func (r *Room) StartBetting(caller string) error {
	return r.do(func() error {
		if caller != r.dealerID {
			return ErrNotDealer
		}
		if r.phase != PhaseWaiting && r.phase != PhaseSettled {
			return ErrInvalidPhase
		}
		if !r.anySeatedLocked() {
			r.phase = PhaseWaiting
			r.message = "Nobody is seated, cannot start a round"
			r.queueStateLocked()
			return nil
		}
		if r.shoe.Remaining() < r.rules.ReshuffleAt {
			r.shoe.Rebuild()
			r.message = "Shoe is running low, bringing in fresh decks"
			r.queueEventLocked(Event{Type: EventTypeShuffleStarted, Seat: NoSeat})
			r.queueStateLocked()
			r.cancelCountdownLocked()
			r.scheduleLocked(r.rules.ShuffleDelay, r.enterBettingLocked)
			return nil
		}
		r.enterBettingLocked()
		return nil
	})
}

func (r *Room) anySeatedLocked() bool {
	for _, seat := range r.seats {
		if seat != nil {
			return true
		}
	}
	return false
}

// enterBettingLocked resets every occupied seat and opens the betting
// countdown. On expiry the deal starts whether or not bets were
// confirmed.
func (r *Room) enterBettingLocked() {
	if !r.anySeatedLocked() {
		r.phase = PhaseWaiting
		r.message = "Nobody is seated, cannot start a round"
		r.queueStateLocked()
		return
	}
	r.phase = PhaseBetting
	r.dealerCards = nil
	r.dealerOutcome = DealerWaiting
	r.turn = NoSeat
	for _, seat := range r.seats {
		if seat != nil {
			seat.ResetForBetting()
		}
	}
	r.message = "Place your bets"
	r.queueStateLocked()
	r.armCountdownLocked(r.rules.BetSeconds, CountdownBetting, r.dealLocked)
}

// dealLocked runs the initial deal. Qualifying seats (any wager) go to
// playing; the rest sit the round out. Deal order is fixed: each
// qualifying seat from the highest index down gets its first card,
// then the dealer's up-card, then second cards, then the hole card.
func (r *Room) dealLocked() {
	r.phase = PhaseDealing

	var active []int
	for idx := NumSeats - 1; idx >= 0; idx-- {
		seat := r.seats[idx]
		if seat == nil {
			continue
		}
		if seat.HasWager() {
			seat.Status = StatusPlaying
			active = append(active, idx)
		} else {
			seat.Status = StatusWaitingNext
		}
	}

	if len(active) == 0 {
		r.phase = PhaseWaiting
		r.message = "No bets placed, round voided"
		r.queueStateLocked()
		return
	}

	type dealTask struct {
		seat     int // NoSeat targets the dealer
		faceDown bool
	}
	var queue []dealTask
	for _, idx := range active {
		queue = append(queue, dealTask{seat: idx})
	}
	queue = append(queue, dealTask{seat: NoSeat})
	for _, idx := range active {
		queue = append(queue, dealTask{seat: idx})
	}
	queue = append(queue, dealTask{seat: NoSeat, faceDown: true})

	r.message = "Dealing"
	r.queueStateLocked()

	var delay time.Duration
	for _, task := range queue {
		task := task
		r.scheduleLocked(delay, func() {
			r.dealOneLocked(task.seat, task.faceDown)
		})
		delay += r.rules.DealPace
	}
	r.scheduleLocked(delay+r.rules.DealFinish, func() {
		r.finishDealLocked(active)
	})
}

func (r *Room) dealOneLocked(seatIdx int, faceDown bool) {
	r.clearFreshLocked()
	card, err := r.shoe.Draw(faceDown)
	if err != nil {
		// Should be prevented by the reshuffle threshold; void the
		// round rather than leave a half-dealt table.
		r.logger.Error("shoe exhausted mid-deal, voiding round", "error", err)
		r.abortRoundLocked()
		return
	}
	if seatIdx == NoSeat {
		r.dealerCards = append(r.dealerCards, card)
	} else if seat := r.seats[seatIdx]; seat != nil {
		seat.Cards = append(seat.Cards, card)
	}
	r.queueEventLocked(Event{Type: EventTypeCardDealt, Seat: seatIdx})
	r.queueStateLocked()
}

// abortRoundLocked is the defensive bail-out for mid-round faults:
// refund all wagers and return to waiting on a fresh shoe.
func (r *Room) abortRoundLocked() {
	r.cancelCountdownLocked()
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		r.refundSeatLocked(seat)
		seat.ClearForWaiting()
	}
	r.dealerCards = nil
	r.dealerOutcome = DealerWaiting
	r.turn = NoSeat
	r.phase = PhaseWaiting
	r.shoe.Rebuild()
	r.message = "Round voided"
	r.queueStateLocked()
}

// finishDealLocked evaluates naturals, then branches to the insurance
// phase when the dealer shows an ace, or straight into player turns.
func (r *Room) finishDealLocked(active []int) {
	r.clearFreshLocked()
	for _, idx := range active {
		seat := r.seats[idx]
		if seat == nil {
			continue
		}
		if seat.Status == StatusPlaying && Score(seat.Cards, true) == 21 {
			seat.Status = StatusBlackjack
			r.queueEventLocked(Event{Type: EventTypePlayerBlackjack, Seat: idx})
		}
	}

	if len(r.dealerCards) > 0 && r.dealerCards[0].IsAce() {
		r.enterInsuranceLocked()
		return
	}
	r.phase = PhasePlaying
	r.turn = NumSeats
	r.advanceTurnLocked()
}

// enterInsuranceLocked opens the insurance window.
func (r *Room) enterInsuranceLocked() {
	r.phase = PhaseInsurance
	r.message = "Dealer shows an ace: insurance?"
	r.queueStateLocked()
	r.armCountdownLocked(r.rules.ActionSeconds, CountdownAction, r.resolveInsuranceLocked)
}

// resolveInsuranceLocked peeks the hole card. With a dealer natural
// the round skips straight to settlement, where insurance pays out;
// otherwise stakes are forfeit and play continues.
func (r *Room) resolveInsuranceLocked() {
	if len(r.dealerCards) < 2 {
		return
	}
	hole := r.dealerCards[1]
	if hole.IsAce() || hole.Points() == 10 {
		r.dealerCards[1].FaceDown = false
		r.dealerCards[1].Fresh = true
		r.message = "Dealer has blackjack, insurance pays double"
		r.queueStateLocked()
		r.scheduleLocked(r.rules.InsuranceDelay, r.settleLocked)
		return
	}
	r.message = "No dealer blackjack, insurance stakes forfeit"
	r.queueStateLocked()
	r.scheduleLocked(r.rules.InsuranceDelay, func() {
		r.phase = PhasePlaying
		r.turn = NumSeats
		r.advanceTurnLocked()
	})
}

// dealerTurnLocked reveals the hole card and plays out the house hand:
// draw while under 17 (a soft 17 draws, since the scorer reports the
// soft total), but only when at least one seat stood.
func (r *Room) dealerTurnLocked() {
	r.cancelCountdownLocked()
	r.phase = PhaseDealerTurn
	r.turn = NoSeat
	if len(r.dealerCards) >= 2 {
		r.dealerCards[1].FaceDown = false
		r.dealerCards[1].Fresh = true
	}
	r.message = "Dealer reveals the hole card"
	r.queueStateLocked()

	needsDraw := false
	for _, seat := range r.seats {
		if seat != nil && seat.Status == StatusStood {
			needsDraw = true
		}
	}

	r.scheduleLocked(r.rules.RevealDelay, func() {
		r.dealerDrawLocked(needsDraw)
	})
}

func (r *Room) dealerDrawLocked(needsDraw bool) {
	r.clearFreshLocked()
	score := Score(r.dealerCards, true)
	if needsDraw && score < 17 {
		card, err := r.shoe.Draw(false)
		if err != nil {
			r.logger.Error("shoe exhausted during dealer draw", "error", err)
			r.abortRoundLocked()
			return
		}
		r.dealerCards = append(r.dealerCards, card)
		r.queueEventLocked(Event{Type: EventTypeCardDealt, Seat: NoSeat})
		r.queueStateLocked()
		r.scheduleLocked(r.rules.DealerPace, func() {
			r.dealerDrawLocked(needsDraw)
		})
		return
	}

	if score > 21 {
		r.dealerOutcome = DealerBust
		r.message = "Dealer busts"
	} else {
		r.dealerOutcome = DealerStood
		r.message = "Dealer stands"
	}
	r.queueStateLocked()
	r.scheduleLocked(r.rules.SettleDelay, r.settleLocked)
}

// settleLocked computes and applies the round's payouts, exactly once.
func (r *Room) settleLocked() {
	if r.phase == PhaseSettled {
		return
	}
	r.cancelCountdownLocked()
	r.phase = PhaseSettled
	r.turn = NoSeat
	settlement := settleHands(r.seats[:], r.dealerCards, r.ledger, r.dealerID)
	r.message = "Round settled"
	r.queueEventLocked(Event{Type: EventTypeHandSettled, Seat: NoSeat, Settlement: &settlement})
	r.queueStateLocked()
}

// ForceReset clears hands and bets from any phase and returns to
// waiting on a freshly shuffled shoe. Host only.
func (r *Room) ForceReset(caller string) error {
	return r.do(func() error {
		if caller != r.hostID {
			return ErrNotHost
		}
		r.abortRoundLocked()
		r.message = "Host reset the table"
		return nil
	})
}

// EndSession closes the table for dealer handover. Host only, and
// only between rounds.
func (r *Room) EndSession(caller string) error {
	return r.do(func() error {
		if caller != r.hostID {
			return ErrNotHost
		}
		if r.phase != PhaseSettled && r.phase != PhaseWaiting {
			return ErrInvalidPhase
		}
		r.cancelCountdownLocked()
		r.phase = PhaseSessionEnded
		r.message = "Session ended"
		r.queueStateLocked()
		return nil
	})
}

// HandoverDealer passes the house role to another player: seats are
// cleared, every profit counter zeroed, the new dealer funded with the
// standard bankroll and everyone else reset to zero. Host only, from
// session_ended.
func (r *Room) HandoverDealer(caller, newDealer string) error {
	return r.do(func() error {
		if caller != r.hostID {
			return ErrNotHost
		}
		if r.phase != PhaseSessionEnded {
			return ErrInvalidPhase
		}
		next, ok := r.ledger.Get(newDealer)
		if !ok {
			return ErrUnknownPlayer
		}
		r.dealerID = next.ID
		for i := range r.seats {
			r.seats[i] = nil
		}
		for _, p := range r.ledger.All() {
			p.PnL = 0
			if p.ID == r.dealerID {
				p.Balance = r.rules.DealerBankroll
			} else {
				p.Balance = 0
			}
		}
		r.chipRequests = nil
		r.dealerCards = nil
		r.dealerOutcome = DealerWaiting
		r.turn = NoSeat
		r.phase = PhaseWaiting
		r.shoe.Rebuild()
		r.message = next.Name + " is the new dealer"
		r.queueStateLocked()
		return nil
	})
}

// IsShoeError reports whether an error is the defensive shoe
// exhaustion failure.
func IsShoeError(err error) bool {
	return errors.Is(err, deck.ErrShoeExhausted)
}
