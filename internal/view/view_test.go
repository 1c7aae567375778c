package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/tableau"
)

func midRound() engine.State {
	s := engine.NewRoom("QRST", engine.Rules{}, time.Now(),
		engine.Seat{ID: "a", Name: "Ann"},
		engine.Seat{ID: "b", Name: "Bo"},
		engine.Seat{ID: "c", Name: "Cy"},
	)
	s.Phase = engine.PhasePlaying
	s.Tableau[cards.Spades] = tableau.Run{Low: 7, High: 8}
	s.Players[0].Hand = []cards.Card{cards.New(cards.Spades, 9), cards.New(cards.Hearts, 2)}
	s.Players[1].Hand = []cards.Card{cards.New(cards.Clubs, 4)}
	s.Players[2].Hand = []cards.Card{cards.New(cards.Diamonds, 5), cards.New(cards.Diamonds, 6)}
	s.CurrentPlayerIndex = 0
	s.DealerIndex = 2
	s.AskenHolderID = "b"
	return s
}

func TestBuild_RedactsOtherHands(t *testing.T) {
	gs := Build(midRound(), "b")

	require.Len(t, gs.Players, 3)
	assert.Empty(t, gs.Players[0].Hand)
	assert.Empty(t, gs.Players[2].Hand)
	assert.Len(t, gs.Players[1].Hand, 1)
	assert.Equal(t, 2, gs.Players[2].CardCount)
	assert.Equal(t, "clubs-4", gs.MyHand[0].ID)
	assert.Equal(t, "b", gs.MyID)
	assert.True(t, gs.Players[1].IsMe)
	assert.True(t, gs.Players[1].HasAsken)
	assert.True(t, gs.Players[0].IsCurrent)
	assert.True(t, gs.Players[0].IsHost)
	assert.True(t, gs.Players[2].IsDealer)
	assert.Nil(t, gs.PlayableCardIDs, "not this player's turn")
}

func TestBuild_PlayableCards(t *testing.T) {
	s := midRound()
	assert.Equal(t, []string{"spades-9"}, Build(s, "a").PlayableCardIDs)

	s.HelpMode = false
	assert.Equal(t, []string{"spades-9", "hearts-2"}, Build(s, "a").PlayableCardIDs)
}

func TestBuild_RoundEndRevealsHands(t *testing.T) {
	s := midRound()
	s.Phase = engine.PhaseRoundEnd
	s.RoundEnded = true
	s.RoundWinners = []string{"b"}
	s.Mode = engine.ModeQuick

	gs := Build(s, "b")
	for _, p := range gs.Players {
		assert.Len(t, p.Hand, p.CardCount, p.Name)
		assert.False(t, p.IsCurrent)
	}
	assert.True(t, gs.Players[1].IsWinner)
	assert.True(t, gs.IsGameOver)
	assert.Nil(t, gs.PlayableCardIDs)
}

func TestBuild_TableauShape(t *testing.T) {
	raw, err := json.Marshal(Build(midRound(), "a"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]any{"spades": map[string]any{"low": 7.0, "high": 8.0}}, decoded["tableau"])
	assert.Equal(t, "playing", decoded["state"])
}
