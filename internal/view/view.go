package view

import (
	"slices"

	"github.com/DoyleJ11/asken-backend/internal/bot"
	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/pkg/types"
)

// Build projects the room for one player. Other players' hands stay hidden
// until the round has ended.
func Build(s engine.State, playerID string) types.GameState {
	current, hasTurn := s.Current()
	myTurn := hasTurn && current.ID == playerID
	revealAll := s.RoundEnded

	gs := types.GameState{
		Code:               s.Code,
		State:              string(s.Phase),
		Mode:               string(s.Mode),
		MyID:               playerID,
		HostID:             s.HostID,
		IsHost:             s.IsHost(playerID),
		Players:            make([]types.PlayerView, 0, len(s.Players)),
		MyHand:             []types.Card{},
		CurrentPlayerIndex: s.CurrentPlayerIndex,
		DealerIndex:        s.DealerIndex,
		StarterIndex:       s.StarterIndex,
		Tableau:            tableauView(s),
		AskenHolderID:      s.AskenHolderID,
		RoundNumber:        s.RoundNumber,
		RoundEnded:         s.RoundEnded,
		RoundWinners:       slices.Clone(s.RoundWinners),
		LastPlayedCards:    slices.Clone(s.LastPlayedCards),
		BotDifficulty:      string(s.BotDifficulty),
		HelpMode:           s.HelpMode,
		HasBots:            s.HasBots(),
		IsGameOver:         s.GameOver(),
	}
	if gs.RoundWinners == nil {
		gs.RoundWinners = []string{}
	}
	if gs.LastPlayedCards == nil {
		gs.LastPlayedCards = []string{}
	}

	for i, p := range s.Players {
		pv := types.PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			CardCount: len(p.Hand),
			Score:     p.Score,
			Connected: p.Connected,
			IsBot:     p.IsBot,
			IsMe:      p.ID == playerID,
			IsCurrent: hasTurn && i == s.CurrentPlayerIndex,
			IsHost:    p.ID == s.HostID,
			IsDealer:  s.Phase != engine.PhaseLobby && i == s.DealerIndex,
			IsStarter: s.Phase != engine.PhaseLobby && i == s.StarterIndex,
			HasAsken:  s.AskenHolderID != "" && p.ID == s.AskenHolderID,
			IsWinner:  slices.Contains(s.RoundWinners, p.ID),
		}
		if pv.IsMe {
			gs.MyHand = cardsView(p.Hand)
		}
		if pv.IsMe || revealAll {
			pv.Hand = cardsView(p.Hand)
		}
		gs.Players = append(gs.Players, pv)
	}

	for _, rs := range s.RoundScores {
		gs.RoundScores = append(gs.RoundScores, types.RoundScore(rs))
	}

	if myTurn {
		gs.PlayableCardIDs = playable(current.Hand, s)
	}
	return gs
}

// playable lists the ids the current player may select. Without help mode
// every card is selectable and validation happens on play.
func playable(hand []cards.Card, s engine.State) []string {
	if !s.HelpMode {
		return cards.IDs(hand)
	}
	return cards.IDs(bot.Candidates(hand, s.Tableau))
}

func cardsView(hand []cards.Card) []types.Card {
	out := make([]types.Card, len(hand))
	for i, c := range hand {
		out[i] = types.Card{ID: c.ID, Suit: c.Suit.String(), Rank: c.Rank}
	}
	return out
}

func tableauView(s engine.State) map[string]types.Run {
	out := map[string]types.Run{}
	for _, suit := range cards.Suits {
		if run := s.Tableau.Run(suit); run.Open() {
			out[suit.String()] = types.Run{Low: run.Low, High: run.High}
		}
	}
	return out
}
