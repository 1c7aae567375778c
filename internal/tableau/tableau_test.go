package tableau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/asken-backend/internal/cards"
)

func c(s cards.Suit, r int) cards.Card { return cards.New(s, r) }

func withRuns(runs map[cards.Suit]Run) Tableau {
	var t Tableau
	for s, r := range runs {
		t[s] = r
	}
	return t
}

func TestCanPlay(t *testing.T) {
	opened := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 6, High: 9}})

	cases := []struct {
		name  string
		card  cards.Card
		table Tableau
		want  bool
	}{
		{"empty table accepts spades seven", c(cards.Spades, 7), Tableau{}, true},
		{"empty table rejects hearts seven", c(cards.Hearts, 7), Tableau{}, false},
		{"empty table rejects spades eight", c(cards.Spades, 8), Tableau{}, false},
		{"unopened suit accepts seven", c(cards.Hearts, 7), opened, true},
		{"unopened suit rejects six", c(cards.Hearts, 6), opened, false},
		{"extends low end", c(cards.Spades, 5), opened, true},
		{"extends high end", c(cards.Spades, 10), opened, true},
		{"gap below", c(cards.Spades, 4), opened, false},
		{"gap above", c(cards.Spades, 11), opened, false},
		{"already placed", c(cards.Spades, 7), opened, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanPlay(tc.card, tc.table); got != tc.want {
				t.Fatalf("CanPlay(%s): got %v, want %v", tc.card.ID, got, tc.want)
			}
		})
	}
}

func TestCanPlay_PlacingExtendsOnlyThatSuit(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{
		cards.Spades: {Low: 5, High: 8},
		cards.Hearts: {Low: 7, High: 7},
	})
	for _, card := range cards.NewDeck() {
		if !CanPlay(card, table) {
			continue
		}
		next := Place(table, card)
		run := next[card.Suit]
		assert.True(t, run.Low == card.Rank || run.High == card.Rank, card.ID)
		for _, s := range cards.Suits {
			if s != card.Suit {
				assert.Equal(t, table[s], next[s], "suit %s changed when placing %s", s, card.ID)
			}
		}
	}
}

func TestCanEventuallyPlay(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 6, High: 8}})
	hand := []cards.Card{
		c(cards.Spades, 9), c(cards.Spades, 10), c(cards.Spades, 12),
		c(cards.Spades, 4),
		c(cards.Hearts, 7), c(cards.Hearts, 8), c(cards.Hearts, 10),
		c(cards.Clubs, 5), c(cards.Clubs, 6),
	}

	cases := []struct {
		card cards.Card
		want bool
	}{
		{c(cards.Spades, 9), true},
		{c(cards.Spades, 10), true},
		{c(cards.Spades, 12), false}, // jack missing
		{c(cards.Spades, 4), false},  // five missing
		{c(cards.Hearts, 7), true},
		{c(cards.Hearts, 8), true},
		{c(cards.Hearts, 10), false}, // nine missing
		{c(cards.Clubs, 6), false},   // no clubs seven in hand
		{c(cards.Clubs, 5), false},
	}
	for _, tc := range cases {
		if got := CanEventuallyPlay(tc.card, hand, table); got != tc.want {
			t.Fatalf("CanEventuallyPlay(%s): got %v, want %v", tc.card.ID, got, tc.want)
		}
	}
}

func TestCanEventuallyPlay_EmptyTableOnlyOpeningCard(t *testing.T) {
	hand := []cards.Card{c(cards.Spades, 7), c(cards.Spades, 8), c(cards.Hearts, 7)}
	assert.True(t, CanEventuallyPlay(hand[0], hand, Tableau{}))
	assert.False(t, CanEventuallyPlay(hand[1], hand, Tableau{}))
	assert.False(t, CanEventuallyPlay(hand[2], hand, Tableau{}))
}

func TestPlayOrder_OpeningMove(t *testing.T) {
	order, ok := PlayOrder([]cards.Card{cards.OpeningCard}, Tableau{})
	require.True(t, ok)
	assert.Equal(t, []string{"spades-7"}, cards.IDs(order))

	for _, card := range cards.NewDeck() {
		if card.IsOpening() {
			continue
		}
		_, ok := PlayOrder([]cards.Card{card}, Tableau{})
		assert.False(t, ok, card.ID)
	}

	_, ok = PlayOrder([]cards.Card{cards.OpeningCard, c(cards.Spades, 8)}, Tableau{})
	assert.False(t, ok, "multi-card opening must be rejected")
}

func TestPlayOrder_ReordersAcrossSuits(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 7, High: 7}})
	selected := []cards.Card{c(cards.Spades, 10), c(cards.Hearts, 8), c(cards.Spades, 9), c(cards.Hearts, 7), c(cards.Spades, 8)}

	order, ok := PlayOrder(selected, table)
	require.True(t, ok)
	require.Len(t, order, len(selected))

	sim := table
	for _, card := range order {
		require.True(t, CanPlay(card, sim), "step %s not playable", card.ID)
		sim = Place(sim, card)
	}
	assert.Equal(t, Run{Low: 7, High: 10}, sim[cards.Spades])
	assert.Equal(t, Run{Low: 7, High: 8}, sim[cards.Hearts])
}

func TestPlayOrder_Rejects(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 7, High: 7}})
	cases := []struct {
		name     string
		selected []cards.Card
	}{
		{"empty selection", nil},
		{"gap in run", []cards.Card{c(cards.Spades, 8), c(cards.Spades, 10)}},
		{"unopened suit", []cards.Card{c(cards.Hearts, 5)}},
		{"card already on table", []cards.Card{c(cards.Spades, 7)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := PlayOrder(tc.selected, table); ok {
				t.Fatalf("expected no valid order")
			}
		})
	}
}

func TestPlayOrder_DoesNotMutateInput(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 7, High: 7}})
	selected := []cards.Card{c(cards.Spades, 9), c(cards.Spades, 8)}
	_, ok := PlayOrder(selected, table)
	require.True(t, ok)
	assert.Equal(t, []string{"spades-9", "spades-8"}, cards.IDs(selected))
	assert.Equal(t, Run{Low: 7, High: 7}, table[cards.Spades])
}

func TestExplain(t *testing.T) {
	table := withRuns(map[cards.Suit]Run{cards.Spades: {Low: 6, High: 8}})

	msg := Explain([]cards.Card{c(cards.Hearts, 5)}, table)
	assert.Contains(t, msg, "Five of hearts cannot be played")
	assert.Contains(t, msg, "opened with a seven")

	msg = Explain([]cards.Card{c(cards.Spades, 11)}, table)
	assert.Contains(t, msg, "nine of spades must be played first")

	msg = Explain([]cards.Card{c(cards.Spades, 3)}, table)
	assert.Contains(t, msg, "five of spades must be played first")

	msg = Explain([]cards.Card{c(cards.Spades, 7)}, table)
	assert.Contains(t, msg, "already on the table")

	assert.Equal(t, "No cards selected.", Explain(nil, table))
	assert.Equal(t, "These cards cannot be played together in any order.",
		Explain([]cards.Card{c(cards.Spades, 9)}, table))
}
