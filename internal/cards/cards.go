package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

var ErrUnknownSuit = errors.New("unknown suit")
var ErrBadCardID = errors.New("bad card id")

// Suit order doubles as the hand sort order.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

const NumSuits = 4

const (
	Ace   = 1
	Seven = 7
	King  = 13
)

var Suits = [NumSuits]Suit{Spades, Hearts, Clubs, Diamonds}

var suitNames = [NumSuits]string{"spades", "hearts", "clubs", "diamonds"}

func (s Suit) String() string {
	if s < 0 || int(s) >= NumSuits {
		return "suit(" + strconv.Itoa(int(s)) + ")"
	}
	return suitNames[s]
}

func ParseSuit(name string) (Suit, error) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSuit, name)
}

func (s Suit) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= NumSuits {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSuit, int(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	parsed, err := ParseSuit(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Card is identified by ID alone; ID is always "<suit>-<rank>".
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank int    `json:"rank"`
}

func New(suit Suit, rank int) Card {
	return Card{ID: ID(suit, rank), Suit: suit, Rank: rank}
}

func ID(suit Suit, rank int) string {
	return suit.String() + "-" + strconv.Itoa(rank)
}

func Parse(id string) (Card, error) {
	name, rankStr, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCardID, id)
	}
	suit, err := ParseSuit(name)
	if err != nil {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCardID, id)
	}
	rank, err := strconv.Atoi(rankStr)
	if err != nil || rank < Ace || rank > King {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCardID, id)
	}
	return New(suit, rank), nil
}

// OpeningCard is the only legal first play of a round.
var OpeningCard = New(Spades, Seven)

func (c Card) IsOpening() bool { return c.Suit == Spades && c.Rank == Seven }

// Points is the penalty value of a card left in hand at round end.
func Points(c Card) int {
	switch {
	case c.Rank == Ace:
		return 25
	case c.Rank >= 10:
		return 10
	default:
		return 5
	}
}

func SumPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += Points(c)
	}
	return total
}

func NewDeck() []Card {
	deck := make([]Card, 0, NumSuits*King)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			deck = append(deck, New(s, r))
		}
	}
	return deck
}

func Shuffle(deck []Card) {
	rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

func SortHand(hand []Card) {
	slices.SortFunc(hand, func(a, b Card) int {
		if a.Suit != b.Suit {
			return int(a.Suit) - int(b.Suit)
		}
		return a.Rank - b.Rank
	})
}

func IndexOf(hand []Card, id string) int {
	return slices.IndexFunc(hand, func(c Card) bool { return c.ID == id })
}

func Contains(hand []Card, suit Suit, rank int) bool {
	return slices.ContainsFunc(hand, func(c Card) bool { return c.Suit == suit && c.Rank == rank })
}

func IDs(cs []Card) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// Without returns hand minus every card in played, preserving order.
func Without(hand, played []Card) []Card {
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		if !slices.ContainsFunc(played, func(p Card) bool { return p.ID == c.ID }) {
			out = append(out, c)
		}
	}
	return out
}
