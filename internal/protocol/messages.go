// Package protocol defines the JSON messages exchanged with Blackjack
// clients over WebSocket.
//
// Every message is a flat object with an "action" verb; the remaining
// fields are optional and depend on the verb.
package protocol

// Client -> Server actions
const (
	ActionJoinGame         = "joinGame"
	ActionCreateRoom       = "createRoom"
	ActionJoinRoom         = "joinRoom"
	ActionLeaveRoom        = "leaveRoom"
	ActionPlayerReady      = "playerReady"
	ActionStartGame        = "startGame"
	ActionPlayerHit        = "playerHit"
	ActionPlayerStand      = "playerStand"
	ActionUpdatePlayerName = "updatePlayerName"
)

// Server -> Client actions. playerHit and playerStand are also broadcast
// back to the room once accepted.
const (
	ActionJoinedGame           = "joinedGame"
	ActionRoomCreated          = "roomCreated"
	ActionRoomJoined           = "roomJoined"
	ActionRoomLeft             = "roomLeft"
	ActionPlayerJoined         = "playerJoined"
	ActionPlayerLeft           = "playerLeft"
	ActionPlayerDisconnected   = "playerDisconnected"
	ActionReadyToStart         = "readyToStart"
	ActionPlayerReadyStatus    = "playerReadyStatus"
	ActionCountdownStarted     = "countdownStarted"
	ActionCountdownUpdate      = "countdownUpdate"
	ActionCountdownCancelled   = "countdownCancelled"
	ActionGameStarted          = "gameStarted"
	ActionUpdateGameState      = "updateGameState"
	ActionPlayerTurn           = "playerTurn"
	ActionPlayerTimeoutStarted = "playerTimeoutStarted"
	ActionPlayerTimeout        = "playerTimeout"
	ActionPlayerBust           = "playerBust"
	ActionDealerTurn           = "dealerTurn"
	ActionDealerHit            = "dealerHit"
	ActionDealerBust           = "dealerBust"
	ActionDealerStand          = "dealerStand"
	ActionGameOver             = "gameOver"
	ActionPlayerNameUpdated    = "playerNameUpdated"
	ActionNameUpdateConfirmed  = "nameUpdateConfirmed"
	ActionNameUpdateFailed     = "nameUpdateFailed"
	ActionError                = "error"
)

// Error codes carried in the "code" field of error and *Failed messages
const (
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeRoomExists          = "ROOM_EXISTS"
	CodeRoomFull            = "ROOM_FULL"
	CodeAlreadyJoined       = "ALREADY_JOINED"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodeNotPlaying          = "NOT_PLAYING"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeAlreadyActed        = "ALREADY_ACTED"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeInvalidName         = "INVALID_NAME"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeNameCooldownActive  = "NAME_COOLDOWN_ACTIVE"
	CodeMalformedMessage    = "MALFORMED_MESSAGE"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeNotInRoom           = "NOT_IN_ROOM"
	CodeInternal            = "INTERNAL"
)

// Message is the single envelope used in both directions
type Message struct {
	Action string `json:"action"`

	PlayerID   string      `json:"playerId,omitempty"`
	PlayerName string      `json:"playerName,omitempty"`
	RoomID     string      `json:"roomId,omitempty"`
	Name       string      `json:"name,omitempty"`
	RoomConfig *RoomConfig `json:"roomConfig,omitempty"`

	Players            []Player `json:"players,omitempty"`
	Player             *Player  `json:"player,omitempty"`
	Dealer             *Dealer  `json:"dealer,omitempty"`
	CurrentPlayerIndex *int     `json:"currentPlayerIndex,omitempty"`
	CurrentPlayer      string   `json:"currentPlayer,omitempty"`
	GamePhase          string   `json:"gamePhase,omitempty"`
	TotalPlayers       int      `json:"totalPlayers,omitempty"`

	Card        *Card    `json:"card,omitempty"`
	Score       *int     `json:"score,omitempty"`
	DealerScore *int     `json:"dealerScore,omitempty"`
	Seconds     *int     `json:"seconds,omitempty"`
	IsReady     *bool    `json:"isReady,omitempty"`
	Result      string   `json:"result,omitempty"`
	Results     []Result `json:"results,omitempty"`

	OldName           string `json:"oldName,omitempty"`
	NewName           string `json:"newName,omitempty"`
	CooldownRemaining int64  `json:"cooldownRemaining,omitempty"`
	CooldownMinutes   int    `json:"cooldownMinutes,omitempty"`

	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Card is a card as shown to clients
type Card struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// Hidden is the stand-in for the dealer's hole card
const Hidden = "Hidden"

// HiddenCard masks a face-down card
var HiddenCard = Card{Suit: Hidden, Value: Hidden}

// Player is a seated player's public state
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hand     []Card `json:"hand"`
	Score    int    `json:"score"`
	IsActive bool   `json:"isActive"`
	HasStood bool   `json:"hasStood"`
	IsBust   bool   `json:"isBust"`
	IsReady  bool   `json:"isReady"`
}

// Dealer is the house hand, masked while players act
type Dealer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hand     []Card `json:"hand"`
	Score    int    `json:"score"`
	IsActive bool   `json:"isActive"`
	HasStood bool   `json:"hasStood"`
	IsBust   bool   `json:"isBust"`
}

// Result is one settled hand
type Result struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	DealerScore int    `json:"dealerScore"`
	Outcome     string `json:"outcome"`
	Blackjack   bool   `json:"blackjack,omitempty"`
	Line        string `json:"line"`
}

// PlayerTimeout mirrors the nested timeout settings of a room config
type PlayerTimeout struct {
	Enabled         *bool `json:"enabled,omitempty"`
	DurationSeconds *int  `json:"durationSeconds,omitempty"`
}

// RoomConfig is sent by clients creating a room (all fields optional) and
// echoed back in full by the server.
type RoomConfig struct {
	MaxPlayers       *int           `json:"maxPlayers,omitempty"`
	CountdownSeconds *int           `json:"countdownSeconds,omitempty"`
	PlayerTimeout    *PlayerTimeout `json:"playerTimeout,omitempty"`
	AutoStart        *bool          `json:"autoStart,omitempty"`
	MinPlayers       *int           `json:"minPlayers,omitempty"`
}

// RoomSummary is one entry in the room listing
type RoomSummary struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	MinPlayers int    `json:"minPlayers"`
	AutoStart  bool   `json:"autoStart"`
	CreatedAt  string `json:"createdAt"`
}

// IntPtr returns a pointer to v, for optional numeric fields
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool {
	return &v
}
