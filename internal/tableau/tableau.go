package tableau

import (
	"github.com/DoyleJ11/asken-backend/internal/cards"
)

// Run is the contiguous interval of ranks laid out for one suit.
// The zero Run means the suit has not been opened.
type Run struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (r Run) Open() bool { return r.Low != 0 }

func (r Run) Covers(rank int) bool { return r.Open() && rank >= r.Low && rank <= r.High }

// Tableau holds one Run per suit, indexed by cards.Suit.
type Tableau [cards.NumSuits]Run

func (t Tableau) Empty() bool {
	for _, r := range t {
		if r.Open() {
			return false
		}
	}
	return true
}

func (t Tableau) Run(s cards.Suit) Run { return t[s] }

// CanPlay reports whether c can be placed right now.
func CanPlay(c cards.Card, t Tableau) bool {
	if t.Empty() {
		return c.IsOpening()
	}
	run := t[c.Suit]
	if !run.Open() {
		return c.Rank == cards.Seven
	}
	return c.Rank == run.Low-1 || c.Rank == run.High+1
}

// CanEventuallyPlay reports whether c could be placed this turn by first
// playing cards the hand already holds.
func CanEventuallyPlay(c cards.Card, hand []cards.Card, t Tableau) bool {
	if t.Empty() {
		return c.IsOpening()
	}
	run := t[c.Suit]
	if !run.Open() {
		if c.Rank == cards.Seven {
			return true
		}
		if !cards.Contains(hand, c.Suit, cards.Seven) {
			return false
		}
		return bridged(c, hand, cards.Seven)
	}
	switch {
	case c.Rank > run.High:
		return bridged(c, hand, run.High)
	case c.Rank < run.Low:
		return bridged(c, hand, run.Low)
	default:
		return false
	}
}

// bridged checks every rank strictly between from and c.Rank is in hand.
func bridged(c cards.Card, hand []cards.Card, from int) bool {
	step := 1
	if c.Rank < from {
		step = -1
	}
	for r := from + step; r != c.Rank; r += step {
		if !cards.Contains(hand, c.Suit, r) {
			return false
		}
	}
	return true
}

// Place returns t with c added to its suit run. c must be playable.
func Place(t Tableau, c cards.Card) Tableau {
	run := t[c.Suit]
	if !run.Open() {
		t[c.Suit] = Run{Low: c.Rank, High: c.Rank}
		return t
	}
	if c.Rank < run.Low {
		run.Low = c.Rank
	}
	if c.Rank > run.High {
		run.High = c.Rank
	}
	t[c.Suit] = run
	return t
}

// PlayOrder finds an order in which every selected card is playable at the
// moment it is placed. The second result is false when no order exists.
func PlayOrder(selected []cards.Card, t Tableau) ([]cards.Card, bool) {
	if len(selected) == 0 {
		return nil, false
	}
	if t.Empty() {
		if len(selected) != 1 || !selected[0].IsOpening() {
			return nil, false
		}
		return []cards.Card{selected[0]}, true
	}

	remaining := append([]cards.Card(nil), selected...)
	ordered := make([]cards.Card, 0, len(selected))
	sim := t
	for len(remaining) > 0 {
		found := false
		for i, c := range remaining {
			if !CanPlay(c, sim) {
				continue
			}
			ordered = append(ordered, c)
			remaining = append(remaining[:i], remaining[i+1:]...)
			sim = Place(sim, c)
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	return ordered, true
}

// Apply places an already ordered sequence.
func Apply(t Tableau, ordered []cards.Card) Tableau {
	for _, c := range ordered {
		t = Place(t, c)
	}
	return t
}
