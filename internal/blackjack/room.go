package blackjack

import (
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroom/blackjack/internal/deck"
)

// Phase is the round state machine's current state.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseBetting      Phase = "betting"
	PhaseDealing      Phase = "dealing"
	PhaseInsurance    Phase = "insurance"
	PhasePlaying      Phase = "playing"
	PhaseDealerTurn   Phase = "dealer_turn"
	PhaseSettled      Phase = "settled"
	PhaseSessionEnded Phase = "session_ended"
)

// DealerOutcome tags how the dealer's hand ended.
type DealerOutcome string

const (
	DealerWaiting DealerOutcome = "waiting"
	DealerBust    DealerOutcome = "bust"
	DealerStood   DealerOutcome = "stood"
)

const (
	// NumSeats is the number of player positions at a table.
	NumSeats = 5
	// NoSeat means no seat is on turn (idle or dealer's turn).
	NoSeat = -1
)

// BetKind distinguishes a seat owner's primary bet from a spectator's
// behind bet.
type BetKind string

const (
	BetMain   BetKind = "main"
	BetBehind BetKind = "behind"
)

// Room is one independent blackjack table: phase, seats, shoe, ledger
// and the single active countdown. All state is guarded by one mutex;
// commands and timer callbacks are serialized against each other, and
// every scheduled callback carries the generation it was armed under
// so a stale callback is a safe no-op.
type Room struct {
	ID string

	mu            sync.Mutex
	phase         Phase
	seats         [NumSeats]*Seat
	dealerCards   []deck.Card
	dealerOutcome DealerOutcome
	shoe          *deck.Shoe
	ledger        *Ledger
	dealerID      string
	hostID        string
	turn          int
	chipRequests  []ChipRequest
	message       string

	countdownLeft int
	countdownKind CountdownKind

	rules    Rules
	clock    quartz.Clock
	rng      *rand.Rand
	logger   *log.Logger
	notifier Notifier

	// gen invalidates outstanding scheduled callbacks; timer is the
	// active countdown's next tick, stopped eagerly on cancel.
	gen   uint64
	timer *quartz.Timer

	pending    []func(Notifier)
	stateDirty bool
}

// NewRoom creates a room whose creator is both dealer and host,
// funded with the dealer bankroll.
func NewRoom(id, hostID, hostName string, rules Rules, clock quartz.Clock, rng *rand.Rand, notifier Notifier, logger *log.Logger) *Room {
	r := &Room{
		ID:            id,
		phase:         PhaseWaiting,
		dealerOutcome: DealerWaiting,
		shoe:          deck.NewShoe(rules.Decks, rng),
		ledger:        NewLedger(),
		dealerID:      hostID,
		hostID:        hostID,
		turn:          NoSeat,
		message:       "Waiting for players to sit and request chips",
		rules:         rules,
		clock:         clock,
		rng:           rng,
		logger:        logger.WithPrefix("room").With("room", id),
		notifier:      notifier,
	}
	host := r.ledger.Add(hostID, hostName)
	host.Balance = rules.DealerBankroll
	return r
}

// AddPlayer registers a new identity with a zero balance. Joining an
// already-known identity is a no-op rebinding.
func (r *Room) AddPlayer(id, name string) {
	r.do(func() error {
		r.ledger.Add(id, name)
		r.message = name + " joined the table"
		r.queueStateLocked()
		return nil
	})
}

// HasPlayerName reports whether a ledger entry already uses the name.
func (r *Room) HasPlayerName(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.ledger.ByName(name); ok {
		return p.ID, true
	}
	return "", false
}

// Phase returns the current round phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Turn returns the seat index currently on turn, or NoSeat.
func (r *Room) Turn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turn
}

// PlayerInfo returns a copy of a ledger entry.
func (r *Room) PlayerInfo(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.ledger.Get(id); ok {
		return *p, true
	}
	return Player{}, false
}

// DealerID returns the identity acting as the house.
func (r *Room) DealerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dealerID
}

// HostID returns the identity holding administrative privileges.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Shutdown invalidates every outstanding timer. Called when the room
// is deleted from the registry; a callback that fires afterwards
// no-ops on the generation check.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelCountdownLocked()
}

// do runs a command under the room lock and flushes queued
// notifications after releasing it.
func (r *Room) do(fn func() error) error {
	r.mu.Lock()
	err := fn()
	batch, state := r.drainLocked()
	r.mu.Unlock()
	r.publish(batch, state)
	return err
}

// runStep executes a scheduled callback. The step is skipped when its
// generation is stale — the phase or seat it targeted has moved on —
// and an unexpected panic is contained so one failed deferred task
// cannot take the room down.
func (r *Room) runStep(gen uint64, step func()) {
	var batch []func(Notifier)
	var state bool
	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("scheduled step panicked", "panic", rec)
			}
		}()
		if gen != r.gen {
			return
		}
		step()
		batch, state = r.drainLocked()
	}()
	r.publish(batch, state)
}

// schedule arms a one-shot callback bound to the current generation.
// Callers must hold the lock.
func (r *Room) scheduleLocked(d time.Duration, step func()) {
	gen := r.gen
	r.clock.AfterFunc(d, func() {
		r.runStep(gen, step)
	})
}

// armCountdownLocked starts the room's single countdown, cancelling
// any prior one first so two countdowns can never run concurrently.
// onExpiry runs under the lock when the countdown reaches zero.
func (r *Room) armCountdownLocked(seconds int, kind CountdownKind, onExpiry func()) {
	r.cancelCountdownLocked()
	r.countdownLeft = seconds
	r.countdownKind = kind
	r.scheduleTickLocked(onExpiry)
}

func (r *Room) scheduleTickLocked(onExpiry func()) {
	gen := r.gen
	r.timer = r.clock.AfterFunc(time.Second, func() {
		r.runStep(gen, func() {
			r.countdownLeft--
			r.queueTickLocked(r.countdownLeft, r.countdownKind)
			if r.countdownLeft <= 0 {
				r.cancelCountdownLocked()
				onExpiry()
				return
			}
			r.scheduleTickLocked(onExpiry)
		})
	})
}

// cancelCountdownLocked stops the active countdown and invalidates
// every outstanding scheduled callback.
func (r *Room) cancelCountdownLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.countdownLeft = 0
	r.countdownKind = CountdownNone
}

func (r *Room) queueEventLocked(ev Event) {
	id := r.ID
	r.pending = append(r.pending, func(n Notifier) { n.GameEvent(id, ev) })
}

func (r *Room) queueTickLocked(remaining int, kind CountdownKind) {
	id := r.ID
	r.pending = append(r.pending, func(n Notifier) { n.CountdownTick(id, remaining, kind) })
}

func (r *Room) queueStateLocked() {
	r.stateDirty = true
}

func (r *Room) drainLocked() ([]func(Notifier), bool) {
	batch := r.pending
	state := r.stateDirty
	r.pending = nil
	r.stateDirty = false
	return batch, state
}

func (r *Room) publish(batch []func(Notifier), state bool) {
	if r.notifier == nil {
		return
	}
	for _, fn := range batch {
		fn(r.notifier)
	}
	if state {
		r.notifier.StateChanged(r.ID)
	}
}

// clearFreshLocked drops the newly-dealt marker from every card so
// the next deal animates only its own card.
func (r *Room) clearFreshLocked() {
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		for i := range seat.Cards {
			seat.Cards[i].Fresh = false
		}
	}
	for i := range r.dealerCards {
		r.dealerCards[i].Fresh = false
	}
}

// TakeSeat claims an empty seat for the caller. The dealer never sits,
// and sitting requires a positive balance.
func (r *Room) TakeSeat(caller string, index int) error {
	return r.do(func() error {
		if index < 0 || index >= NumSeats {
			return ErrSeatEmpty
		}
		if r.phase == PhaseDealing || r.phase == PhaseDealerTurn {
			return ErrInvalidPhase
		}
		if caller == r.dealerID {
			return ErrNotOwner
		}
		p, ok := r.ledger.Get(caller)
		if !ok {
			return ErrUnknownPlayer
		}
		if r.seats[index] != nil {
			return ErrSeatOccupied
		}
		if p.Balance <= 0 {
			return ErrInsufficientBalance
		}
		status := StatusWaiting
		if r.phase == PhasePlaying {
			status = StatusWaitingNext
		}
		r.seats[index] = NewSeat(caller, status)
		r.queueStateLocked()
		return nil
	})
}

// LeaveSeat vacates the caller's seat between rounds, refunding any
// pending primary and behind bets to their owners.
func (r *Room) LeaveSeat(caller string, index int) error {
	return r.do(func() error {
		if index < 0 || index >= NumSeats {
			return ErrSeatEmpty
		}
		seat := r.seats[index]
		if seat == nil {
			return ErrSeatEmpty
		}
		if seat.Owner != caller {
			return ErrNotOwner
		}
		if r.phase != PhaseWaiting && r.phase != PhaseSettled {
			return ErrInvalidPhase
		}
		r.refundSeatLocked(seat)
		r.seats[index] = nil
		r.queueStateLocked()
		return nil
	})
}

// refundSeatLocked returns unsettled wagers to their owners. Only
// meaningful outside a live round; settled rounds have zeroed nothing
// back into the seat.
func (r *Room) refundSeatLocked(seat *Seat) {
	if p, ok := r.ledger.Get(seat.Owner); ok {
		p.Balance += seat.Bet + seat.Insurance
	}
	for _, b := range seat.Behind {
		if p, ok := r.ledger.Get(b.Owner); ok {
			p.Balance += b.Amount + b.Insurance
		}
	}
	seat.Bet = 0
	seat.Insurance = 0
	seat.Behind = nil
}

// PlaceBet adds to the caller's primary bet on their own seat, or to
// their behind bet on someone else's seat. Debits are pre-checked
// against balance so balances never go negative.
func (r *Room) PlaceBet(caller string, index int, kind BetKind, amount int) error {
	return r.do(func() error {
		seat, p, err := r.bettingSeatLocked(caller, index)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return ErrInsufficientBalance
		}
		switch kind {
		case BetMain:
			if seat.Owner != caller {
				return ErrNotOwner
			}
			if seat.BetConfirmed {
				return ErrAlreadyConfirmed
			}
			if p.Balance < amount {
				return ErrInsufficientBalance
			}
			p.Balance -= amount
			seat.Bet += amount
		case BetBehind:
			if seat.Owner == caller {
				return ErrNotOwner
			}
			if seat.Bet == 0 {
				return ErrSeatEmpty
			}
			b := seat.BehindBet(caller)
			if b != nil && b.Confirmed {
				return ErrAlreadyConfirmed
			}
			if p.Balance < amount {
				return ErrInsufficientBalance
			}
			p.Balance -= amount
			if b == nil {
				b = &SideBet{Owner: caller}
				seat.Behind = append(seat.Behind, b)
			}
			b.Amount += amount
		default:
			return ErrInvalidPhase
		}
		r.queueStateLocked()
		return nil
	})
}

// ClearBet refunds and zeroes an unconfirmed bet. Behind-bet records
// are deleted when cleared.
func (r *Room) ClearBet(caller string, index int, kind BetKind) error {
	return r.do(func() error {
		seat, p, err := r.bettingSeatLocked(caller, index)
		if err != nil {
			return err
		}
		switch kind {
		case BetMain:
			if seat.Owner != caller {
				return ErrNotOwner
			}
			if seat.BetConfirmed {
				return ErrAlreadyConfirmed
			}
			p.Balance += seat.Bet
			seat.Bet = 0
		case BetBehind:
			b := seat.BehindBet(caller)
			if b == nil {
				return ErrSeatEmpty
			}
			if b.Confirmed {
				return ErrAlreadyConfirmed
			}
			p.Balance += b.Amount
			seat.RemoveBehindBet(caller)
		default:
			return ErrInvalidPhase
		}
		r.queueStateLocked()
		return nil
	})
}

// ConfirmBet locks a bet in. Confirmed bets can no longer be changed
// or cleared, though unconfirmed bets are still honored at the deal.
func (r *Room) ConfirmBet(caller string, index int, kind BetKind) error {
	return r.do(func() error {
		seat, _, err := r.bettingSeatLocked(caller, index)
		if err != nil {
			return err
		}
		switch kind {
		case BetMain:
			if seat.Owner != caller {
				return ErrNotOwner
			}
			seat.BetConfirmed = true
		case BetBehind:
			b := seat.BehindBet(caller)
			if b == nil {
				return ErrSeatEmpty
			}
			b.Confirmed = true
		default:
			return ErrInvalidPhase
		}
		r.queueStateLocked()
		return nil
	})
}

func (r *Room) bettingSeatLocked(caller string, index int) (*Seat, *Player, error) {
	if r.phase != PhaseBetting {
		return nil, nil, ErrInvalidPhase
	}
	if index < 0 || index >= NumSeats {
		return nil, nil, ErrSeatEmpty
	}
	seat := r.seats[index]
	if seat == nil {
		return nil, nil, ErrSeatEmpty
	}
	p, ok := r.ledger.Get(caller)
	if !ok {
		return nil, nil, ErrUnknownPlayer
	}
	return seat, p, nil
}

// BuyInsurance buys insurance for the caller's principal on the given
// seat: once per wager, exactly half the principal, debited
// immediately.
func (r *Room) BuyInsurance(caller string, index int, kind BetKind) error {
	return r.do(func() error {
		if r.phase != PhaseInsurance {
			return ErrInvalidPhase
		}
		if index < 0 || index >= NumSeats {
			return ErrSeatEmpty
		}
		seat := r.seats[index]
		if seat == nil {
			return ErrSeatEmpty
		}
		p, ok := r.ledger.Get(caller)
		if !ok {
			return ErrUnknownPlayer
		}
		switch kind {
		case BetMain:
			if seat.Owner != caller {
				return ErrNotOwner
			}
			if seat.Bet == 0 {
				return ErrSeatEmpty
			}
			if seat.Insurance > 0 {
				return ErrAlreadyConfirmed
			}
			stake := seat.Bet / 2
			if p.Balance < stake {
				return ErrInsufficientBalance
			}
			p.Balance -= stake
			seat.Insurance = stake
		case BetBehind:
			b := seat.BehindBet(caller)
			if b == nil || b.Amount == 0 {
				return ErrSeatEmpty
			}
			if b.Insurance > 0 {
				return ErrAlreadyConfirmed
			}
			stake := b.Amount / 2
			if p.Balance < stake {
				return ErrInsufficientBalance
			}
			p.Balance -= stake
			b.Insurance = stake
		default:
			return ErrInvalidPhase
		}
		r.queueStateLocked()
		return nil
	})
}

// RequestChips files a chip request for the dealer to approve.
func (r *Room) RequestChips(caller string, amount int) error {
	return r.do(func() error {
		p, ok := r.ledger.Get(caller)
		if !ok {
			return ErrUnknownPlayer
		}
		if amount <= 0 {
			return ErrInsufficientBalance
		}
		r.chipRequests = append(r.chipRequests, ChipRequest{PlayerID: caller, Name: p.Name, Amount: amount})
		r.queueStateLocked()
		return nil
	})
}

// ApproveChips grants a pending chip request. Dealer only.
func (r *Room) ApproveChips(caller, playerID string, amount int) error {
	return r.do(func() error {
		if caller != r.dealerID {
			return ErrNotDealer
		}
		if !r.removeChipRequestLocked(playerID, amount) {
			return ErrUnknownPlayer
		}
		if p, ok := r.ledger.Get(playerID); ok {
			p.Balance += amount
		}
		r.queueStateLocked()
		return nil
	})
}

// RejectChips drops a pending chip request. Dealer only.
func (r *Room) RejectChips(caller, playerID string, amount int) error {
	return r.do(func() error {
		if caller != r.dealerID {
			return ErrNotDealer
		}
		if !r.removeChipRequestLocked(playerID, amount) {
			return ErrUnknownPlayer
		}
		r.queueStateLocked()
		return nil
	})
}

func (r *Room) removeChipRequestLocked(playerID string, amount int) bool {
	for i, req := range r.chipRequests {
		if req.PlayerID == playerID && req.Amount == amount {
			r.chipRequests = append(r.chipRequests[:i], r.chipRequests[i+1:]...)
			return true
		}
	}
	return false
}

// PlayerDisconnected handles a player dropping. A seat on turn is
// forced to stand exactly as on timeout; seats outside a live round
// are vacated with wagers refunded. successor, chosen by the session
// layer among still-connected players, inherits host and dealer
// privileges if the leaver held them.
func (r *Room) PlayerDisconnected(identity, successor string) {
	r.do(func() error {
		advance := false
		for idx, seat := range r.seats {
			if seat == nil || seat.Owner != identity {
				continue
			}
			switch r.phase {
			case PhasePlaying, PhaseDealing, PhaseDealerTurn:
				seat.Status = StatusStood
				if r.phase == PhasePlaying && r.turn == idx {
					advance = true
				}
			default:
				r.refundSeatLocked(seat)
				r.seats[idx] = nil
			}
		}
		if r.hostID == identity && successor != "" {
			r.hostID = successor
		}
		if r.dealerID == identity && successor != "" {
			r.dealerID = successor
			r.message = "Dealer disconnected, privileges passed on"
		}
		if advance {
			r.advanceTurnLocked()
		}
		r.queueStateLocked()
		return nil
	})
}
