package types

import "time"

// Client -> Server
const (
	MsgCreateRoom       = "create-room"        // name
	MsgJoinRoom         = "join-room"          // code, name
	MsgRejoinRoom       = "rejoin-room"        // code, name
	MsgKeepalivePing    = "keepalive-ping"
	MsgAddBot           = "add-bot"
	MsgRemoveBot        = "remove-bot"         // botId
	MsgSetBotDifficulty = "set-bot-difficulty" // difficulty: "dumb" | "medium" | "smart"
	MsgSetHelpMode      = "set-help-mode"      // helpMode
	MsgStartGame        = "start-game"         // mode: "quick" | "standard"
	MsgSelectCards      = "select-cards"       // cardIds
	MsgPlayCards        = "play-cards"         // cardIds
	MsgPass             = "pass"
	MsgNextRound        = "next-round"
	MsgNewGame          = "new-game"
	MsgHostEndGame      = "host-end-game"
	MsgLeaveRoom        = "leave-room"
	MsgChat             = "chat-message"       // text
	MsgJoinMatchmaking  = "join-matchmaking"   // name
	MsgLeaveMatchmaking = "leave-matchmaking"
	MsgStartMatchmaking = "start-matchmaking"  // selected (optional connection ids)
)

// Server -> Client
const (
	MsgRoomCreated        = "room-created"
	MsgRoomJoined         = "room-joined"
	MsgRejoinSuccess      = "rejoin-success"
	MsgRejoinFailed       = "rejoin-failed"
	MsgGameState          = "game-state"
	MsgInvalidMove        = "invalid-move"
	MsgError              = "error"
	MsgCardsSelected      = "cards-selected"
	MsgHostEndedGame      = "host-ended-game"
	MsgGameEnded          = "game-ended"
	MsgRoomClosed         = "room-closed"
	MsgCloseModal         = "close-modal"
	MsgPong               = "pong"
	MsgMatchmakingUpdate  = "matchmaking-update"
	MsgMatchmakingStarted = "matchmaking-started"
)

// MaxChatLength is the longest chat message relayed, after trimming.
const MaxChatLength = 200

type ClientMessage struct {
	Type       string   `json:"type"`
	Code       string   `json:"code,omitempty"`
	Name       string   `json:"name,omitempty"`
	CardIDs    []string `json:"cardIds,omitempty"`
	BotID      string   `json:"botId,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	HelpMode   *bool    `json:"helpMode,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Text       string   `json:"text,omitempty"`
	Selected   []string `json:"selected,omitempty"`
}

type ServerMessage struct {
	Type        string            `json:"type"`
	Code        string            `json:"code,omitempty"`
	Name        string            `json:"name,omitempty"`
	PlayerName  string            `json:"playerName,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	CardIDs     []string          `json:"cardIds,omitempty"`
	State       *GameState        `json:"state,omitempty"`
	Chat        *ChatMessage      `json:"chat,omitempty"`
	Matchmaking *MatchmakingState `json:"matchmaking,omitempty"`
}

type ChatMessage struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	At       time.Time `json:"timestamp"`
}

type MatchmakingEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MatchmakingState is the queue as seen by one queued connection.
type MatchmakingState struct {
	Count    int                `json:"count"`
	Entries  []MatchmakingEntry `json:"players"`
	Position int                `json:"position"`
	IsHost   bool               `json:"isHost"`
}

func ErrorMessage(msg string) ServerMessage {
	return ServerMessage{Type: MsgError, Error: msg}
}
