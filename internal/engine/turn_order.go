package engine

import (
	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/tableau"
)

// deal starts a round: shuffle, deal one at a time from the dealer's left,
// and hand the first turn to whoever holds the seven of spades.
func deal(s *State) {
	deck := cards.NewDeck()
	shuffleDeck(deck)

	n := len(s.Players)
	hands := make([][]cards.Card, n)
	for i, c := range deck {
		seat := (s.DealerIndex + 1 + i) % n
		hands[seat] = append(hands[seat], c)
	}
	for i := range s.Players {
		cards.SortHand(hands[i])
		s.Players[i].Hand = hands[i]
		if cards.IndexOf(hands[i], cards.OpeningCard.ID) >= 0 {
			s.StarterIndex = i
		}
	}

	s.Phase = PhasePlaying
	s.Tableau = tableau.Tableau{}
	s.AskenHolderID = ""
	s.RoundEnded = false
	s.RoundWinners = []string{}
	s.RoundScores = nil
	s.LastPlayedCards = []string{}
	s.CurrentPlayerIndex = s.StarterIndex
	s.TurnSeq++
}

func play(s *State, i int, order []cards.Card) []Event {
	p := &s.Players[i]
	p.Hand = cards.Without(p.Hand, order)
	s.Tableau = tableau.Apply(s.Tableau, order)
	s.LastPlayedCards = cards.IDs(order)

	events := []Event{{Type: EvtCardsPlayed, PlayerID: p.ID, Name: p.Name, CardIDs: s.LastPlayedCards}}
	if len(p.Hand) == 0 {
		return append(events, endRound(s)...)
	}
	advance(s)
	return events
}

// passTurn makes the player the asken holder and moves the turn on.
func passTurn(s *State, i int) []Event {
	p := s.Players[i]
	s.AskenHolderID = p.ID
	advance(s)
	return []Event{{Type: EvtPassed, PlayerID: p.ID, Name: p.Name}}
}

func advance(s *State) {
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	s.TurnSeq++
}

// endRound scores the round. Card points count against everyone with cards
// left and the asken holder also takes the penalty. Every player tied for the
// lowest round total wins the round.
func endRound(s *State) []Event {
	s.RoundScores = make([]RoundScore, 0, len(s.Players))
	best := -1
	for i := range s.Players {
		p := &s.Players[i]
		rs := RoundScore{PlayerID: p.ID, Name: p.Name, CardsLeft: len(p.Hand), CardPoints: cards.SumPoints(p.Hand)}
		if p.ID == s.AskenHolderID {
			rs.AskenPoints = AskenPenalty
		}
		rs.RoundTotal = rs.CardPoints + rs.AskenPoints
		p.Score += rs.RoundTotal
		rs.TotalScore = p.Score
		s.RoundScores = append(s.RoundScores, rs)
		if best < 0 || rs.RoundTotal < best {
			best = rs.RoundTotal
		}
	}

	s.RoundWinners = []string{}
	for _, rs := range s.RoundScores {
		if rs.RoundTotal == best {
			s.RoundWinners = append(s.RoundWinners, rs.PlayerID)
		}
	}

	s.RoundEnded = true
	s.Phase = PhaseRoundEnd
	s.TurnSeq++

	events := []Event{{Type: EvtRoundEnded}}
	if s.GameOver() {
		events = append(events, Event{Type: EvtGameOver})
	}
	return events
}
