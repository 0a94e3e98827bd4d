package blackjack

// advanceTurnLocked moves the turn to the next lower seat still in
// playing status, arming a fresh decision countdown for it. With no
// eligible seat left the round moves to the dealer's turn. Re-arming
// cancels the prior countdown, so only one deadline is ever live.
func (r *Room) advanceTurnLocked() {
	r.cancelCountdownLocked()

	if r.turn == NoSeat {
		r.turn = NumSeats
	}
	for r.turn--; r.turn >= 0; r.turn-- {
		seat := r.seats[r.turn]
		if seat == nil || seat.Status != StatusPlaying {
			continue
		}
		name := seat.Owner
		if p, ok := r.ledger.Get(seat.Owner); ok {
			name = p.Name
		}
		r.message = "Waiting on " + name
		r.queueStateLocked()

		idx := r.turn
		r.armCountdownLocked(r.rules.ActionSeconds, CountdownAction, func() {
			// Deadline expired with no action: identical to an
			// explicit stand.
			if seat := r.seats[idx]; seat != nil {
				seat.Status = StatusStood
			}
			r.queueStateLocked()
			r.advanceTurnLocked()
		})
		return
	}

	r.turn = NoSeat
	r.dealerTurnLocked()
}

// turnSeatLocked validates that the caller owns the seat currently on
// turn.
func (r *Room) turnSeatLocked(caller string, index int) (*Seat, error) {
	if r.phase != PhasePlaying || r.turn != index {
		return nil, ErrInvalidPhase
	}
	if index < 0 || index >= NumSeats {
		return nil, ErrSeatEmpty
	}
	seat := r.seats[index]
	if seat == nil {
		return nil, ErrSeatEmpty
	}
	if seat.Owner != caller {
		return nil, ErrNotOwner
	}
	return seat, nil
}

// Hit draws one card for the seat on turn. A bust or a 21 ends the
// seat's turn after a short grace delay; otherwise the decision
// countdown restarts.
func (r *Room) Hit(caller string, index int) error {
	return r.do(func() error {
		seat, err := r.turnSeatLocked(caller, index)
		if err != nil {
			return err
		}
		r.cancelCountdownLocked()
		r.clearFreshLocked()
		card, err := r.shoe.Draw(false)
		if err != nil {
			r.logger.Error("shoe exhausted on hit", "error", err)
			r.abortRoundLocked()
			return err
		}
		seat.Cards = append(seat.Cards, card)
		r.queueEventLocked(Event{Type: EventTypeCardDealt, Seat: index})

		switch score := Score(seat.Cards, true); {
		case score > 21:
			seat.Status = StatusBust
			r.queueEventLocked(Event{Type: EventTypePlayerBust, Seat: index})
			r.queueStateLocked()
			r.scheduleLocked(r.rules.BustGrace, r.advanceTurnLocked)
		case score == 21:
			seat.Status = StatusStood
			r.queueStateLocked()
			r.scheduleLocked(r.rules.TwentyOneGrace, r.advanceTurnLocked)
		default:
			r.queueStateLocked()
			idx := index
			r.armCountdownLocked(r.rules.ActionSeconds, CountdownAction, func() {
				if seat := r.seats[idx]; seat != nil {
					seat.Status = StatusStood
				}
				r.queueStateLocked()
				r.advanceTurnLocked()
			})
		}
		return nil
	})
}

// Stand ends the seat's turn immediately.
func (r *Room) Stand(caller string, index int) error {
	return r.do(func() error {
		seat, err := r.turnSeatLocked(caller, index)
		if err != nil {
			return err
		}
		seat.Status = StatusStood
		r.queueStateLocked()
		r.advanceTurnLocked()
		return nil
	})
}

// DoubleDown doubles the principal on a two-card hand, draws exactly
// one forced card and ends the seat's turn. The match is debited up
// front and no further hits are possible.
func (r *Room) DoubleDown(caller string, index int) error {
	return r.do(func() error {
		seat, err := r.turnSeatLocked(caller, index)
		if err != nil {
			return err
		}
		if len(seat.Cards) != 2 || seat.Bet == 0 {
			return ErrInvalidPhase
		}
		p, ok := r.ledger.Get(caller)
		if !ok {
			return ErrUnknownPlayer
		}
		if p.Balance < seat.Bet {
			return ErrInsufficientBalance
		}
		r.cancelCountdownLocked()
		p.Balance -= seat.Bet
		seat.Bet *= 2
		seat.Doubled = true

		r.clearFreshLocked()
		card, err := r.shoe.Draw(false)
		if err != nil {
			r.logger.Error("shoe exhausted on double-down", "error", err)
			r.abortRoundLocked()
			return err
		}
		seat.Cards = append(seat.Cards, card)
		r.queueEventLocked(Event{Type: EventTypeDoubleDown, Seat: index})
		r.queueEventLocked(Event{Type: EventTypeCardDealt, Seat: index})

		if Score(seat.Cards, true) > 21 {
			seat.Status = StatusBust
			r.queueEventLocked(Event{Type: EventTypePlayerBust, Seat: index})
		} else {
			seat.Status = StatusStood
		}
		r.queueStateLocked()
		r.scheduleLocked(r.rules.DoubleGrace, r.advanceTurnLocked)
		return nil
	})
}
