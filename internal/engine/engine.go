package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/asken-backend/internal/bot"
	"github.com/DoyleJ11/asken-backend/internal/cards"
	"github.com/DoyleJ11/asken-backend/internal/tableau"
)

var ErrWrongTurn = errors.New("it is not your turn")
var ErrWrongPhase = errors.New("not allowed right now")
var ErrGameStarted = errors.New("the game has already started")
var ErrRoomFull = errors.New("the room is full (max 7 players)")
var ErrNameTaken = errors.New("that name is already taken")
var ErrNameRequired = errors.New("a name is required")
var ErrAlreadySeated = errors.New("you already have a seat in this room")
var ErrNotHost = errors.New("only the host can do that")
var ErrNotInRoom = errors.New("you are not in this room")
var ErrNoCards = errors.New("no valid cards selected")
var ErrIllegalMove = errors.New("the cards cannot be played in that order")
var ErrMustPlay = errors.New("you must play if you can")
var ErrTooFewPlayers = errors.New("at least 3 players are required")
var ErrInvalidDifficulty = errors.New("invalid bot difficulty")
var ErrInvalidMode = errors.New("invalid game mode")
var ErrBotNotFound = errors.New("bot not found")
var ErrRejoinRejected = errors.New("could not rejoin: the game has already started")
var ErrStale = errors.New("stale command")
var ErrUnsupportedCommand = errors.New("unsupported command")

// IllegalMoveError is returned when a selection has no valid play order.
type IllegalMoveError struct {
	Explanation string
	// Detailed is false in help mode, where players only get the short message.
	Detailed bool
}

func (e *IllegalMoveError) Error() string { return ErrIllegalMove.Error() }
func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

const (
	MaxPlayers    = 7
	MinPlayers    = 3
	AskenPenalty  = 50
	GameOverScore = 500
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "roundEnd"
)

type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
)

type Player struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Hand           []cards.Card `json:"hand"`
	Score          int          `json:"score"`
	Connected      bool         `json:"connected"`
	IsBot          bool         `json:"isBot"`
	DisconnectedAt time.Time    `json:"disconnectedAt,omitzero"`
}

type RoundScore struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	CardPoints  int    `json:"cardPoints"`
	AskenPoints int    `json:"askenPoints"`
	RoundTotal  int    `json:"roundTotal"`
	CardsLeft   int    `json:"cardsLeft"`
	TotalScore  int    `json:"totalScore"`
}

type Rules struct {
	DisconnectGrace time.Duration `json:"disconnectGrace"`
	IdleTTL         time.Duration `json:"idleTTL"`
}

// State is the room aggregate. It is the unit persisted in the room store.
type State struct {
	Code               string          `json:"code"`
	HostID             string          `json:"hostId"`
	Players            []Player        `json:"players"`
	Phase              Phase           `json:"state"`
	Mode               Mode            `json:"mode"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	DealerIndex        int             `json:"dealerIndex"`
	StarterIndex       int             `json:"starterIndex"`
	Tableau            tableau.Tableau `json:"tableau"`
	AskenHolderID      string          `json:"askenHolderId,omitempty"`
	RoundNumber        int             `json:"roundNumber"`
	RoundEnded         bool            `json:"roundEnded"`
	RoundWinners       []string        `json:"roundWinners"`
	RoundScores        []RoundScore    `json:"roundScores,omitempty"`
	LastPlayedCards    []string        `json:"lastPlayedCards"`
	BotDifficulty      bot.Difficulty  `json:"botDifficulty"`
	HelpMode           bool            `json:"helpMode"`
	Rules              Rules           `json:"rules"`
	// TurnSeq increases every time the turn moves; delayed bot turns carry it.
	TurnSeq      int       `json:"turnSeq"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

type CommandType string

const (
	CmdJoin             CommandType = "Join"
	CmdRejoin           CommandType = "Rejoin"
	CmdLeave            CommandType = "Leave"
	CmdDisconnect       CommandType = "Disconnect"
	CmdEvict            CommandType = "Evict"
	CmdPing             CommandType = "Ping"
	CmdAddBot           CommandType = "AddBot"
	CmdRemoveBot        CommandType = "RemoveBot"
	CmdSetBotDifficulty CommandType = "SetBotDifficulty"
	CmdSetHelpMode      CommandType = "SetHelpMode"
	CmdStartGame        CommandType = "StartGame"
	CmdPlayCards        CommandType = "PlayCards"
	CmdPass             CommandType = "Pass"
	CmdBotTurn          CommandType = "BotTurn"
	CmdNextRound        CommandType = "NextRound"
	CmdNewGame          CommandType = "NewGame"
	CmdEndGame          CommandType = "EndGame"
	CmdExpire           CommandType = "Expire"
)

type Command struct {
	Type       CommandType
	PlayerID   string
	Name       string
	TargetID   string
	CardIDs    []string
	Mode       Mode
	Difficulty string
	HelpMode   bool
	TurnSeq    int
	At         time.Time
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtPlayerRejoined     EventType = "PlayerRejoined"
	EvtPlayerLeft         EventType = "PlayerLeft"
	EvtPlayerDisconnected EventType = "PlayerDisconnected"
	EvtPlayerReconnected  EventType = "PlayerReconnected"
	EvtHostChanged        EventType = "HostChanged"
	EvtBotAdded           EventType = "BotAdded"
	EvtBotRemoved         EventType = "BotRemoved"
	EvtSettingsChanged    EventType = "SettingsChanged"
	EvtGameStarted        EventType = "GameStarted"
	EvtRoundStarted       EventType = "RoundStarted"
	EvtCardsPlayed        EventType = "CardsPlayed"
	EvtPassed             EventType = "Passed"
	EvtRoundEnded         EventType = "RoundEnded"
	EvtGameOver           EventType = "GameOver"
	EvtNewGame            EventType = "NewGame"
	EvtModalClosed        EventType = "ModalClosed"
	EvtRoomClosed         EventType = "RoomClosed"
)

const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"
	ReasonHostEnded    = "host-ended"
	ReasonEmpty        = "empty"
	ReasonExpired      = "expired"
)

type Event struct {
	Type     EventType
	PlayerID string
	PrevID   string
	Name     string
	CardIDs  []string
	Reason   string
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the original state is returned untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	var events []Event
	var err error
	switch cmd.Type {
	case CmdJoin:
		events, err = join(&next, cmd)
	case CmdRejoin:
		events, err = rejoin(&next, cmd)
	case CmdLeave:
		events, err = leave(&next, cmd)
	case CmdDisconnect:
		events, err = disconnect(&next, cmd)
	case CmdEvict:
		events, err = evict(&next, cmd)
	case CmdPing:
		events, err = ping(&next, cmd)
	case CmdAddBot:
		events, err = addBot(&next, cmd)
	case CmdRemoveBot:
		events, err = removeBot(&next, cmd)
	case CmdSetBotDifficulty:
		events, err = setBotDifficulty(&next, cmd)
	case CmdSetHelpMode:
		events, err = setHelpMode(&next, cmd)
	case CmdStartGame:
		events, err = startGame(&next, cmd)
	case CmdPlayCards:
		events, err = playCards(&next, cmd)
	case CmdPass:
		events, err = pass(&next, cmd)
	case CmdBotTurn:
		events, err = botTurn(&next, cmd)
	case CmdNextRound:
		events, err = nextRound(&next, cmd)
	case CmdNewGame:
		events, err = newGame(&next, cmd)
	case CmdEndGame:
		events, err = endGame(&next, cmd)
	case CmdExpire:
		events, err = expire(&next, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
	if err != nil {
		return nil, s, err
	}

	if !cmd.At.IsZero() && cmd.Type != CmdExpire {
		next.LastActivity = cmd.At
	}
	return events, next, nil
}

func join(s *State, cmd Command) ([]Event, error) {
	name, err := cleanName(cmd.Name)
	if err != nil {
		return nil, err
	}
	if s.IndexOf(cmd.PlayerID) >= 0 {
		return nil, ErrAlreadySeated
	}
	if s.Phase != PhaseLobby {
		return nil, ErrGameStarted
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	if s.indexByName(name) >= 0 {
		return nil, ErrNameTaken
	}
	s.Players = append(s.Players, Player{ID: cmd.PlayerID, Name: name, Connected: true})
	return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID, Name: name}}, nil
}

func rejoin(s *State, cmd Command) ([]Event, error) {
	name, err := cleanName(cmd.Name)
	if err != nil {
		return nil, err
	}

	events := purge(s, cmd.At)
	if closes(events) {
		return events, nil
	}

	// A session holds at most one seat; it may only reclaim its own.
	seated := s.IndexOf(cmd.PlayerID)

	if i := s.indexByName(name); i >= 0 && !s.Players[i].IsBot {
		if seated >= 0 && seated != i {
			return nil, ErrAlreadySeated
		}
		p := &s.Players[i]
		old := p.ID
		p.ID = cmd.PlayerID
		p.Connected = true
		p.DisconnectedAt = time.Time{}
		s.rebind(old, cmd.PlayerID)
		return append(events, Event{Type: EvtPlayerRejoined, PlayerID: p.ID, PrevID: old, Name: p.Name}), nil
	}

	if seated >= 0 {
		return nil, ErrAlreadySeated
	}
	if s.Phase == PhaseLobby && len(s.Players) < MaxPlayers && s.indexByName(name) < 0 {
		s.Players = append(s.Players, Player{ID: cmd.PlayerID, Name: name, Connected: true})
		return append(events, Event{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID, Name: name}), nil
	}
	return nil, ErrRejoinRejected
}

func leave(s *State, cmd Command) ([]Event, error) {
	i := s.IndexOf(cmd.PlayerID)
	if i < 0 {
		return nil, ErrNotInRoom
	}
	return removeSeat(s, i, ReasonLeft), nil
}

func disconnect(s *State, cmd Command) ([]Event, error) {
	i := s.IndexOf(cmd.PlayerID)
	if i < 0 {
		return nil, ErrNotInRoom
	}
	p := &s.Players[i]
	p.Connected = false
	p.DisconnectedAt = cmd.At
	return []Event{{Type: EvtPlayerDisconnected, PlayerID: p.ID, Name: p.Name}}, nil
}

// evict removes a player whose disconnect grace period ran out.
func evict(s *State, cmd Command) ([]Event, error) {
	i := s.IndexOf(cmd.PlayerID)
	if i < 0 || !s.expired(s.Players[i], cmd.At) {
		return nil, ErrStale
	}
	return removeSeat(s, i, ReasonDisconnected), nil
}

func ping(s *State, cmd Command) ([]Event, error) {
	i := s.IndexOf(cmd.PlayerID)
	if i < 0 {
		return nil, ErrNotInRoom
	}
	var events []Event
	if p := &s.Players[i]; !p.Connected {
		p.Connected = true
		p.DisconnectedAt = time.Time{}
		events = append(events, Event{Type: EvtPlayerReconnected, PlayerID: p.ID, Name: p.Name})
	}
	return append(events, purge(s, cmd.At)...), nil
}

func addBot(s *State, cmd Command) ([]Event, error) {
	if err := s.requireHostInLobby(cmd.PlayerID); err != nil {
		return nil, err
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	p := Player{ID: newBotID(), Name: pickBotName(s.names()), Connected: true, IsBot: true}
	s.Players = append(s.Players, p)
	return []Event{{Type: EvtBotAdded, PlayerID: p.ID, Name: p.Name}}, nil
}

func removeBot(s *State, cmd Command) ([]Event, error) {
	if err := s.requireHostInLobby(cmd.PlayerID); err != nil {
		return nil, err
	}
	i := s.IndexOf(cmd.TargetID)
	if i < 0 || !s.Players[i].IsBot {
		return nil, ErrBotNotFound
	}
	p := s.Players[i]
	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	return []Event{{Type: EvtBotRemoved, PlayerID: p.ID, Name: p.Name}}, nil
}

func setBotDifficulty(s *State, cmd Command) ([]Event, error) {
	if err := s.requireHostInLobby(cmd.PlayerID); err != nil {
		return nil, err
	}
	d, err := bot.ParseDifficulty(cmd.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDifficulty, cmd.Difficulty)
	}
	s.BotDifficulty = d
	return []Event{{Type: EvtSettingsChanged, PlayerID: cmd.PlayerID}}, nil
}

func setHelpMode(s *State, cmd Command) ([]Event, error) {
	if err := s.requireHostInLobby(cmd.PlayerID); err != nil {
		return nil, err
	}
	s.HelpMode = cmd.HelpMode
	return []Event{{Type: EvtSettingsChanged, PlayerID: cmd.PlayerID}}, nil
}

func startGame(s *State, cmd Command) ([]Event, error) {
	if err := s.requireHostInLobby(cmd.PlayerID); err != nil {
		return nil, err
	}
	if len(s.Players) < MinPlayers {
		return nil, ErrTooFewPlayers
	}
	mode := cmd.Mode
	switch mode {
	case "":
		mode = ModeQuick
	case ModeQuick, ModeStandard:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cmd.Mode)
	}

	s.Mode = mode
	s.DealerIndex = 0
	deal(s)
	return []Event{
		{Type: EvtGameStarted, PlayerID: cmd.PlayerID},
		{Type: EvtRoundStarted, PlayerID: s.Players[s.CurrentPlayerIndex].ID},
	}, nil
}

func playCards(s *State, cmd Command) ([]Event, error) {
	i, err := s.requireTurn(cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	selected := resolveCards(s.Players[i].Hand, cmd.CardIDs)
	if len(selected) == 0 {
		return nil, ErrNoCards
	}
	order, ok := tableau.PlayOrder(selected, s.Tableau)
	if !ok {
		return nil, &IllegalMoveError{
			Explanation: tableau.Explain(selected, s.Tableau),
			Detailed:    !s.HelpMode,
		}
	}
	return play(s, i, order), nil
}

func pass(s *State, cmd Command) ([]Event, error) {
	i, err := s.requireTurn(cmd.PlayerID)
	if err != nil {
		return nil, err
	}
	if len(bot.Candidates(s.Players[i].Hand, s.Tableau)) > 0 {
		return nil, ErrMustPlay
	}
	return passTurn(s, i), nil
}

// botTurn runs a delayed bot move. Anything that no longer matches the
// snapshot the turn was scheduled from makes it a no-op.
func botTurn(s *State, cmd Command) ([]Event, error) {
	if s.Phase != PhasePlaying || s.RoundEnded || cmd.TurnSeq != s.TurnSeq {
		return nil, ErrStale
	}
	i := s.CurrentPlayerIndex
	if i < 0 || i >= len(s.Players) || !s.Players[i].IsBot {
		return nil, ErrStale
	}

	move := chooseBotMove(s.Players[i].Hand, s.Tableau, s.BotDifficulty)
	if move.Pass {
		return passTurn(s, i), nil
	}
	order, ok := tableau.PlayOrder(move.Cards, s.Tableau)
	if !ok {
		return nil, fmt.Errorf("bot %s chose %v: %w", s.Players[i].Name, cards.IDs(move.Cards), ErrIllegalMove)
	}
	return play(s, i, order), nil
}

func nextRound(s *State, cmd Command) ([]Event, error) {
	if !s.IsHost(cmd.PlayerID) {
		return nil, ErrNotHost
	}
	if s.Phase != PhaseRoundEnd {
		return nil, ErrWrongPhase
	}
	s.RoundNumber++
	s.DealerIndex = (s.DealerIndex + 1) % len(s.Players)
	s.RoundScores = nil
	deal(s)
	return []Event{
		{Type: EvtModalClosed},
		{Type: EvtRoundStarted, PlayerID: s.Players[s.CurrentPlayerIndex].ID},
	}, nil
}

func newGame(s *State, cmd Command) ([]Event, error) {
	if !s.IsHost(cmd.PlayerID) {
		return nil, ErrNotHost
	}
	for i := range s.Players {
		s.Players[i].Score = 0
		s.Players[i].Hand = nil
	}
	s.RoundNumber = 1
	s.Phase = PhaseLobby
	s.RoundEnded = false
	s.RoundWinners = nil
	s.RoundScores = nil
	s.Tableau = tableau.Tableau{}
	s.AskenHolderID = ""
	s.LastPlayedCards = nil
	s.TurnSeq++
	return []Event{{Type: EvtModalClosed}, {Type: EvtNewGame, PlayerID: cmd.PlayerID}}, nil
}

func endGame(s *State, cmd Command) ([]Event, error) {
	if !s.IsHost(cmd.PlayerID) {
		return nil, ErrNotHost
	}
	return []Event{{Type: EvtRoomClosed, PlayerID: cmd.PlayerID, Reason: ReasonHostEnded}}, nil
}

func expire(s *State, cmd Command) ([]Event, error) {
	if s.Rules.IdleTTL <= 0 || cmd.At.Sub(s.LastActivity) < s.Rules.IdleTTL {
		return nil, ErrStale
	}
	return []Event{{Type: EvtRoomClosed, Reason: ReasonExpired}}, nil
}

// Injected for tests.
var (
	shuffleDeck   = cards.Shuffle
	newBotID      = bot.NewID
	pickBotName   = bot.PickName
	chooseBotMove = bot.Choose
)
