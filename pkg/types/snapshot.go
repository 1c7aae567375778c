package types

// GameState is the per-player redacted view of a room.
type GameState struct {
	Code               string         `json:"code"`
	State              string         `json:"state"`
	Mode               string         `json:"mode"`
	MyID               string         `json:"myId"`
	HostID             string         `json:"hostId"`
	IsHost             bool           `json:"isHost"`
	Players            []PlayerView   `json:"players"`
	MyHand             []Card         `json:"myHand"`
	PlayableCardIDs    []string       `json:"playableCardIds,omitempty"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	DealerIndex        int            `json:"dealerIndex"`
	StarterIndex       int            `json:"starterIndex"`
	Tableau            map[string]Run `json:"tableau"`
	AskenHolderID      string         `json:"askenHolderId,omitempty"`
	RoundNumber        int            `json:"roundNumber"`
	RoundEnded         bool           `json:"roundEnded"`
	RoundWinners       []string       `json:"roundWinners"`
	RoundScores        []RoundScore   `json:"roundScores,omitempty"`
	LastPlayedCards    []string       `json:"lastPlayedCards"`
	BotDifficulty      string         `json:"botDifficulty"`
	HelpMode           bool           `json:"helpMode"`
	HasBots            bool           `json:"hasBots"`
	IsGameOver         bool           `json:"isGameOver"`
}

// PlayerView is one seat. Hand is only set for the viewer's own seat, or for
// every seat once the round has ended.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"cardCount"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	IsBot     bool   `json:"isBot"`
	IsMe      bool   `json:"isMe"`
	IsCurrent bool   `json:"isCurrentPlayer"`
	IsHost    bool   `json:"isHost"`
	IsDealer  bool   `json:"isDealer"`
	IsStarter bool   `json:"isStarter"`
	HasAsken  bool   `json:"hasAsken"`
	IsWinner  bool   `json:"isWinner"`
	Hand      []Card `json:"hand,omitempty"`
}

type Card struct {
	ID   string `json:"id"`
	Suit string `json:"suit"`
	Rank int    `json:"rank"`
}

type Run struct {
	Low  int `json:"low"`
	High int `json:"high"`
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
