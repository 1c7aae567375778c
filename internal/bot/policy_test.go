package bot

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/tableau"
)

func c(s cards.Suit, r int) cards.Card { return cards.New(s, r) }

func spadesOpen() tableau.Tableau {
	var t tableau.Tableau
	t[cards.Spades] = tableau.Run{Low: 7, High: 7}
	return t
}

func TestChoose_PassesWithoutCandidates(t *testing.T) {
	hand := []cards.Card{c(cards.Hearts, 3), c(cards.Clubs, 12)}
	for _, level := range []Difficulty{Dumb, Medium, Smart} {
		move := Choose(hand, spadesOpen(), level)
		assert.True(t, move.Pass, level)
		assert.Empty(t, move.Cards, level)
	}
}

func TestChoose_DumbSingleCandidateIsDeterministic(t *testing.T) {
	hand := []cards.Card{c(cards.Spades, 8), c(cards.Hearts, 3), c(cards.Clubs, 12)}
	for range 50 {
		move := Choose(hand, spadesOpen(), Dumb)
		require.False(t, move.Pass)
		require.Equal(t, []string{"spades-8"}, cards.IDs(move.Cards))
	}
}

func TestChoose_DumbDrawsFromAllCandidates(t *testing.T) {
	old := pickIndex
	defer func() { pickIndex = old }()

	hand := []cards.Card{c(cards.Spades, 8), c(cards.Spades, 9), c(cards.Spades, 10)}
	tests := []struct {
		pick int
		want []string // nil means pass
	}{
		{0, []string{"spades-8"}},
		{1, nil},
		{2, nil},
	}
	for _, tt := range tests {
		pickIndex = func(n int) int {
			if n != len(hand) {
				t.Fatalf("draw over %d cards, want all %d candidates", n, len(hand))
			}
			return tt.pick
		}
		move := Choose(hand, spadesOpen(), Dumb)
		if tt.want == nil {
			assert.True(t, move.Pass, "pick %d", tt.pick)
			continue
		}
		assert.Equal(t, tt.want, cards.IDs(move.Cards))
	}
}

func TestChoose_OpeningCardOnEmptyTable(t *testing.T) {
	hand := []cards.Card{c(cards.Spades, 6), c(cards.Spades, 7), c(cards.Spades, 8), c(cards.Hearts, 7)}
	for _, level := range []Difficulty{Dumb, Medium, Smart} {
		move := Choose(hand, tableau.Tableau{}, level)
		assert.Equal(t, []string{"spades-7"}, cards.IDs(move.Cards), level)
	}
}

func TestChoose_MediumDumpsMostCards(t *testing.T) {
	hand := []cards.Card{
		c(cards.Spades, 8), c(cards.Spades, 9), c(cards.Spades, 10),
		c(cards.Hearts, 7), c(cards.Hearts, 2),
	}
	move := Choose(hand, spadesOpen(), Medium)
	require.False(t, move.Pass)
	assert.ElementsMatch(t, []string{"spades-8", "spades-9", "spades-10", "hearts-7"}, cards.IDs(move.Cards))
}

func TestChoose_MovesAreAlwaysLegal(t *testing.T) {
	deck := cards.NewDeck()
	hand := deck[:20]
	table := spadesOpen()
	table[cards.Hearts] = tableau.Run{Low: 5, High: 9}

	for _, level := range []Difficulty{Dumb, Medium, Smart} {
		move := Choose(hand, table, level)
		if move.Pass {
			continue
		}
		sim := table
		for _, card := range move.Cards {
			require.True(t, tableau.CanPlay(card, sim), "%s: %s", level, card.ID)
			sim = tableau.Place(sim, card)
		}
	}
}

func TestSequences_EnumeratesContiguousRanges(t *testing.T) {
	candidates := []cards.Card{c(cards.Spades, 8), c(cards.Spades, 9), c(cards.Hearts, 7)}
	seqs := Sequences(candidates, spadesOpen())

	var got [][]string
	for _, s := range seqs {
		got = append(got, cards.IDs(s))
	}
	assert.Contains(t, got, []string{"spades-8"})
	assert.Contains(t, got, []string{"spades-8", "spades-9"})
	assert.Contains(t, got, []string{"hearts-7"})
	assert.NotContains(t, got, []string{"spades-9"})
	assert.Len(t, got, 4) // three singles/pairs plus the combined move
}

func TestScoreSmart(t *testing.T) {
	table := spadesOpen()
	table[cards.Hearts] = tableau.Run{Low: 2, High: 12}

	cases := []struct {
		name string
		seq  []cards.Card
		hand []cards.Card
		want int
	}{
		{
			// 2*10 + 50 + 40 (king) + 25 (hearts emptied)
			name: "king empties suit",
			seq:  []cards.Card{c(cards.Hearts, 13)},
			hand: []cards.Card{c(cards.Hearts, 13), c(cards.Clubs, 2)},
			want: 135,
		},
		{
			// 2*5 + 50 - 20 (eight with spades on both sides) + 30 (spades nine next)
			name: "blocking eight",
			seq:  []cards.Card{c(cards.Spades, 8)},
			hand: []cards.Card{c(cards.Spades, 8), c(cards.Spades, 9), c(cards.Spades, 2)},
			want: 70,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scoreSmart(tc.seq, tc.hand, table); got != tc.want {
				t.Fatalf("scoreSmart: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreSmart_EmptiedSuitCountsOnce(t *testing.T) {
	seq := []cards.Card{c(cards.Spades, 8), c(cards.Spades, 9)}
	emptying := scoreSmart(seq, seq, spadesOpen())
	keeping := scoreSmart(seq, append(slices.Clone(seq), c(cards.Spades, 12)), spadesOpen())
	assert.Equal(t, 25, emptying-keeping)
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("smart")
	require.NoError(t, err)
	assert.Equal(t, Smart, d)

	_, err = ParseDifficulty("genius")
	assert.ErrorIs(t, err, ErrUnknownDifficulty)
}

func TestPickName(t *testing.T) {
	name := PickName([]string{"dave"})
	assert.NotEqual(t, "Dave", name)
	assert.Contains(t, names, name)

	exhausted := PickName(names)
	assert.Regexp(t, `^Bot-\d+$`, exhausted)
}

func TestNewID(t *testing.T) {
	id := NewID()
	assert.True(t, IsID(id))
	assert.NotEqual(t, id, NewID())
}
