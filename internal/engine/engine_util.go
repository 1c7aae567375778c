package engine

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/DoyleJ11/asken-backend/internal/bot"
	"github.com/DoyleJ11/asken-backend/internal/cards"
)

// Seat is a player taking a place when a room is created.
type Seat struct {
	ID   string
	Name string
}

// NewRoom returns a lobby owned by the first seat.
func NewRoom(code string, rules Rules, at time.Time, seats ...Seat) State {
	s := State{
		Code:            code,
		Players:         []Player{},
		Phase:           PhaseLobby,
		Mode:            ModeQuick,
		RoundNumber:     1,
		RoundWinners:    []string{},
		LastPlayedCards: []string{},
		BotDifficulty:   bot.Dumb,
		HelpMode:        true,
		Rules:           rules,
		CreatedAt:       at,
		LastActivity:    at,
	}
	for _, seat := range seats {
		s.Players = append(s.Players, Player{ID: seat.ID, Name: strings.TrimSpace(seat.Name), Connected: true})
	}
	if len(s.Players) > 0 {
		s.HostID = s.Players[0].ID
	}
	return s
}

func (s State) Clone() State {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Hand = slices.Clone(p.Hand)
		out.Players[i] = p
	}
	out.RoundWinners = slices.Clone(s.RoundWinners)
	out.RoundScores = slices.Clone(s.RoundScores)
	out.LastPlayedCards = slices.Clone(s.LastPlayedCards)
	return out
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func closes(events []Event) bool { return ContainsEvent(events, EvtRoomClosed) }

func (s State) IndexOf(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func (s State) Player(id string) (Player, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

// Current returns the player whose turn it is, if a round is running.
func (s State) Current() (Player, bool) {
	if s.Phase != PhasePlaying || s.RoundEnded {
		return Player{}, false
	}
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// BotToMove reports whether the next action belongs to a bot.
func (s State) BotToMove() bool {
	p, ok := s.Current()
	return ok && p.IsBot
}

func (s State) IsHost(id string) bool { return id != "" && s.HostID == id }

func (s State) HasBots() bool {
	return slices.ContainsFunc(s.Players, func(p Player) bool { return p.IsBot })
}

func (s State) HasHumans() bool {
	return slices.ContainsFunc(s.Players, func(p Player) bool { return !p.IsBot })
}

// GameOver is true once a round has ended in quick mode or a score reached the limit.
func (s State) GameOver() bool {
	if s.Phase != PhaseRoundEnd {
		return false
	}
	if s.Mode == ModeQuick {
		return true
	}
	return slices.ContainsFunc(s.Players, func(p Player) bool { return p.Score >= GameOverScore })
}

func (s State) names() []string {
	out := make([]string, len(s.Players))
	for i, p := range s.Players {
		out[i] = p.Name
	}
	return out
}

func (s State) indexByName(name string) int {
	fold := cases.Fold()
	want := fold.String(name)
	return slices.IndexFunc(s.Players, func(p Player) bool { return fold.String(p.Name) == want })
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}

// rebind moves every reference to a player from one session id to another.
func (s *State) rebind(from, to string) {
	if s.HostID == from {
		s.HostID = to
	}
	if s.AskenHolderID == from {
		s.AskenHolderID = to
	}
	for i, id := range s.RoundWinners {
		if id == from {
			s.RoundWinners[i] = to
		}
	}
	for i := range s.RoundScores {
		if s.RoundScores[i].PlayerID == from {
			s.RoundScores[i].PlayerID = to
		}
	}
}

func (s State) expired(p Player, at time.Time) bool {
	return !p.IsBot && !p.Connected && !p.DisconnectedAt.IsZero() &&
		at.Sub(p.DisconnectedAt) >= s.Rules.DisconnectGrace
}

// purge removes players whose disconnect grace period has run out.
func purge(s *State, at time.Time) []Event {
	var events []Event
	for {
		i := slices.IndexFunc(s.Players, func(p Player) bool { return s.expired(p, at) })
		if i < 0 {
			return events
		}
		events = append(events, removeSeat(s, i, ReasonDisconnected)...)
		if closes(events) {
			return events
		}
	}
}

// removeSeat drops a player. Outside the lobby the game cannot continue
// short-handed, so the room closes instead.
func removeSeat(s *State, i int, reason string) []Event {
	p := s.Players[i]
	if s.Phase != PhaseLobby {
		return []Event{{Type: EvtRoomClosed, PlayerID: p.ID, Name: p.Name, Reason: reason}}
	}

	s.Players = slices.Delete(s.Players, i, i+1)
	events := []Event{{Type: EvtPlayerLeft, PlayerID: p.ID, Name: p.Name, Reason: reason}}
	if !s.HasHumans() {
		return append(events, Event{Type: EvtRoomClosed, Reason: ReasonEmpty})
	}
	if s.HostID == p.ID {
		h := slices.IndexFunc(s.Players, func(p Player) bool { return !p.IsBot })
		s.HostID = s.Players[h].ID
		events = append(events, Event{Type: EvtHostChanged, PlayerID: s.HostID, Name: s.Players[h].Name})
	}
	return events
}

func (s State) requireHostInLobby(id string) error {
	if !s.IsHost(id) {
		return ErrNotHost
	}
	if s.Phase != PhaseLobby {
		return ErrGameStarted
	}
	return nil
}

func (s State) requireTurn(id string) (int, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return -1, ErrNotInRoom
	}
	if s.Phase != PhasePlaying || s.RoundEnded {
		return -1, ErrWrongPhase
	}
	if i != s.CurrentPlayerIndex {
		return -1, ErrWrongTurn
	}
	return i, nil
}

// resolveCards maps ids onto cards actually held, dropping unknowns and duplicates.
func resolveCards(hand []cards.Card, ids []string) []cards.Card {
	var out []cards.Card
	for _, id := range ids {
		j := cards.IndexOf(hand, id)
		if j < 0 || cards.IndexOf(out, id) >= 0 {
			continue
		}
		out = append(out, hand[j])
	}
	return out
}
