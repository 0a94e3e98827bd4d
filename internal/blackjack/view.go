package blackjack

import "github.com/cardroom/blackjack/internal/deck"

// CardView is a card as one viewer may see it. A redacted face-down
// card keeps only its newly-dealt marker; suit and rank are absent.
type CardView struct {
	Suit   deck.Suit `json:"suit,omitempty"`
	Rank   deck.Rank `json:"rank,omitempty"`
	Hidden bool      `json:"hidden,omitempty"`
	Fresh  bool      `json:"fresh,omitempty"`
}

// SeatView is one seat as projected for a viewer.
type SeatView struct {
	Owner        string     `json:"owner"`
	Status       SeatStatus `json:"status"`
	Cards        []CardView `json:"cards"`
	Score        int        `json:"score"`
	ScoreDisplay string     `json:"scoreDisplay"`
	Bet          int        `json:"bet"`
	Insurance    int        `json:"insurance"`
	BetConfirmed bool       `json:"betConfirmed"`
	Doubled      bool       `json:"doubled"`
	Behind       []SideBet  `json:"behind,omitempty"`
}

// DealerView is the house hand as projected for a viewer. Before the
// reveal, Score and ScoreDisplay cover visible cards only.
type DealerView struct {
	Cards        []CardView    `json:"cards"`
	Score        int           `json:"score"`
	ScoreDisplay string        `json:"scoreDisplay"`
	Outcome      DealerOutcome `json:"outcome"`
}

// RoomView is the redacted snapshot one viewer receives after every
// mutation.
type RoomView struct {
	RoomID        string              `json:"roomId"`
	Phase         Phase               `json:"phase"`
	Message       string              `json:"message"`
	Turn          int                 `json:"turn"`
	Countdown     int                 `json:"countdown"`
	CountdownKind CountdownKind       `json:"countdownKind,omitempty"`
	DealerID      string              `json:"dealerId"`
	HostID        string              `json:"hostId"`
	Dealer        DealerView          `json:"dealer"`
	Seats         [NumSeats]*SeatView `json:"seats"`
	Players       []Player            `json:"players"`
	ChipRequests  []ChipRequest       `json:"chipRequests,omitempty"`
}

// Snapshot builds the view of the room for one viewer. Face-down
// cards stay redacted unless the viewer owns them — the dealer sees
// the hole card, a seat owner their own hidden cards — or the round
// has reached the reveal phases.
func (r *Room) Snapshot(viewer string) *RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()

	revealed := r.phase == PhaseDealerTurn || r.phase == PhaseSettled

	v := &RoomView{
		RoomID:        r.ID,
		Phase:         r.phase,
		Message:       r.message,
		Turn:          r.turn,
		Countdown:     r.countdownLeft,
		CountdownKind: r.countdownKind,
		DealerID:      r.dealerID,
		HostID:        r.hostID,
		ChipRequests:  append([]ChipRequest(nil), r.chipRequests...),
	}

	dealerSees := revealed || viewer == r.dealerID
	v.Dealer = DealerView{
		Cards:        projectCards(r.dealerCards, dealerSees),
		Score:        Score(r.dealerCards, dealerSees),
		ScoreDisplay: ScoreDisplay(r.dealerCards, dealerSees),
		Outcome:      r.dealerOutcome,
	}

	for idx, seat := range r.seats {
		if seat == nil {
			continue
		}
		ownerSees := revealed || viewer == seat.Owner
		v.Seats[idx] = &SeatView{
			Owner:        seat.Owner,
			Status:       seat.Status,
			Cards:        projectCards(seat.Cards, ownerSees),
			Score:        Score(seat.Cards, ownerSees),
			ScoreDisplay: ScoreDisplay(seat.Cards, ownerSees),
			Bet:          seat.Bet,
			Insurance:    seat.Insurance,
			BetConfirmed: seat.BetConfirmed,
			Doubled:      seat.Doubled,
			Behind:       copySideBets(seat.Behind),
		}
	}

	for _, p := range r.ledger.All() {
		v.Players = append(v.Players, *p)
	}
	return v
}

// projectCards redacts face-down cards for viewers not entitled to
// them. A redacted card carries only the Fresh flag.
func projectCards(cards []deck.Card, seeHidden bool) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		if c.FaceDown && !seeHidden {
			out = append(out, CardView{Hidden: true, Fresh: c.Fresh})
			continue
		}
		out = append(out, CardView{Suit: c.Suit, Rank: c.Rank, Fresh: c.Fresh})
	}
	return out
}

func copySideBets(in []*SideBet) []SideBet {
	if len(in) == 0 {
		return nil
	}
	out := make([]SideBet, 0, len(in))
	for _, b := range in {
		out = append(out, *b)
	}
	return out
}
