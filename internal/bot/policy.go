package bot

import (
	"cmp"
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/tableau"
)

var ErrUnknownDifficulty = errors.New("unknown bot difficulty")

type Difficulty string

const (
	Dumb   Difficulty = "dumb"
	Medium Difficulty = "medium"
	Smart  Difficulty = "smart"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Dumb, Medium, Smart:
		return d, nil
	default:
		return "", ErrUnknownDifficulty
	}
}

// Move is the decision made by a bot. Cards are in play order.
type Move struct {
	Pass  bool
	Cards []cards.Card
}

// pickIndex is swapped out in tests.
var pickIndex = rand.IntN

// Candidates returns every hand card that could be played this turn.
func Candidates(hand []cards.Card, t tableau.Tableau) []cards.Card {
	var out []cards.Card
	for _, c := range hand {
		if tableau.CanEventuallyPlay(c, hand, t) {
			out = append(out, c)
		}
	}
	return out
}

// Choose selects a move for the given hand and table.
func Choose(hand []cards.Card, t tableau.Tableau, level Difficulty) Move {
	candidates := Candidates(hand, t)
	if len(candidates) == 0 {
		return Move{Pass: true}
	}

	if level == Dumb || level == "" {
		return chooseRandom(candidates, t)
	}

	sequences := Sequences(candidates, t)
	if len(sequences) == 0 {
		return chooseFirst(candidates, t)
	}

	score := scoreMedium
	if level == Smart {
		score = func(seq []cards.Card) int { return scoreSmart(seq, hand, t) }
	}

	best, bestScore := sequences[0], score(sequences[0])
	for _, seq := range sequences[1:] {
		if s := score(seq); s > bestScore {
			best, bestScore = seq, s
		}
	}
	return Move{Cards: best}
}

// chooseRandom draws one candidate uniformly and plays it alone. A draw that
// cannot go down on its own this turn becomes a pass. The opening card is
// always played when the table is empty.
func chooseRandom(candidates []cards.Card, t tableau.Tableau) Move {
	if t.Empty() {
		if i := cards.IndexOf(candidates, cards.OpeningCard.ID); i >= 0 {
			return Move{Cards: []cards.Card{candidates[i]}}
		}
	}
	pick := candidates[pickIndex(len(candidates))]
	if !tableau.CanPlay(pick, t) {
		return Move{Pass: true}
	}
	return Move{Cards: []cards.Card{pick}}
}

func chooseFirst(candidates []cards.Card, t tableau.Tableau) Move {
	for _, c := range candidates {
		if order, ok := tableau.PlayOrder([]cards.Card{c}, t); ok {
			return Move{Cards: order}
		}
	}
	return Move{Pass: true}
}

// Sequences enumerates the playable contiguous sub-ranges of each suit's
// candidates plus the whole candidate set as one multi-suit move.
func Sequences(candidates []cards.Card, t tableau.Tableau) [][]cards.Card {
	var bySuit [cards.NumSuits][]cards.Card
	for _, c := range candidates {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}

	var out [][]cards.Card
	for _, group := range bySuit {
		slices.SortFunc(group, func(a, b cards.Card) int { return cmp.Compare(a.Rank, b.Rank) })
		for i := range group {
			for j := i; j < len(group); j++ {
				if order, ok := tableau.PlayOrder(group[i:j+1], t); ok {
					out = append(out, order)
				}
			}
		}
	}

	if len(candidates) > 1 {
		if order, ok := tableau.PlayOrder(candidates, t); ok && len(order) > 1 {
			out = append(out, order)
		}
	}
	return out
}

func scoreMedium(seq []cards.Card) int {
	return len(seq)*100 + cards.SumPoints(seq)
}

func scoreSmart(seq, hand []cards.Card, t tableau.Tableau) int {
	score := 2*cards.SumPoints(seq) + 50*len(seq)

	after := tableau.Apply(t, seq)
	remaining := cards.Without(hand, seq)
	for _, c := range remaining {
		if tableau.CanEventuallyPlay(c, remaining, after) {
			score += 30
		}
	}

	emptied := map[cards.Suit]bool{}
	for _, c := range seq {
		if c.Rank == cards.Ace || c.Rank == cards.King {
			score += 40
		}
		if c.Rank == 6 || c.Rank == 8 {
			if holdsBothSides(remaining, c) {
				score -= 20
			}
		}
		if !slices.ContainsFunc(remaining, func(r cards.Card) bool { return r.Suit == c.Suit }) {
			emptied[c.Suit] = true
		}
	}
	// Once per suit emptied, however many of its cards the move plays.
	score += 25 * len(emptied)
	return score
}

func holdsBothSides(hand []cards.Card, c cards.Card) bool {
	lower, higher := false, false
	for _, h := range hand {
		if h.Suit != c.Suit {
			continue
		}
		if h.Rank < c.Rank {
			lower = true
		}
		if h.Rank > c.Rank {
			higher = true
		}
	}
	return lower && higher
}
