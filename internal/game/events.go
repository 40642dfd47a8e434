package game

import (
	"github.com/lox/twentyone/internal/deck"
)

// EventType represents a room event type with type safety
type EventType string

const (
	EventTypeJoined             EventType = "joined"
	EventTypeLeft               EventType = "left"
	EventTypePlayerJoined       EventType = "player_joined"
	EventTypePlayerLeft         EventType = "player_left"
	EventTypeReadyToStart       EventType = "ready_to_start"
	EventTypePlayerReady        EventType = "player_ready"
	EventTypeCountdownStarted   EventType = "countdown_started"
	EventTypeCountdownUpdate    EventType = "countdown_update"
	EventTypeCountdownCancelled EventType = "countdown_cancelled"
	EventTypeGameStarted        EventType = "game_started"
	EventTypePlayerTurn         EventType = "player_turn"
	EventTypeTurnTimerStarted   EventType = "turn_timer_started"
	EventTypePlayerHit          EventType = "player_hit"
	EventTypePlayerStand        EventType = "player_stand"
	EventTypePlayerBust         EventType = "player_bust"
	EventTypePlayerTimeout      EventType = "player_timeout"
	EventTypeDealerTurn         EventType = "dealer_turn"
	EventTypeDealerHit          EventType = "dealer_hit"
	EventTypeDealerBust         EventType = "dealer_bust"
	EventTypeDealerStand        EventType = "dealer_stand"
	EventTypeGameOver           EventType = "game_over"
	EventTypeStateUpdated       EventType = "state_updated"
	EventTypePlayerRenamed      EventType = "player_renamed"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything a room publishes
type Event interface {
	EventType() EventType
}

// Notification addresses an event to a set of players in one room
type Notification struct {
	RoomID string
	To     []string
	Event  Event
}

// Publisher receives room notifications. Publish is called with the room
// lock held: it must not block and must not call back into the room.
type Publisher interface {
	Publish(n Notification)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Notification) {}

// JoinKind records how a player arrived, so the reply can name it
type JoinKind int

const (
	JoinAuto JoinKind = iota
	JoinCreated
	JoinDirect
)

// JoinedEvent is sent to the player that just took a seat
type JoinedEvent struct {
	Kind     JoinKind
	PlayerID string
	Snapshot Snapshot
}

// LeftEvent is sent to a player that left voluntarily
type LeftEvent struct {
	PlayerID string
}

// PlayerJoinedEvent is sent to everyone else when a player takes a seat
type PlayerJoinedEvent struct {
	Player   PlayerView
	Snapshot Snapshot
}

// PlayerLeftEvent is sent to the remaining players
type PlayerLeftEvent struct {
	PlayerID     string
	Name         string
	Disconnected bool
	Snapshot     Snapshot
}

// ReadyToStartEvent fires when a join brings the roster to the minimum
type ReadyToStartEvent struct {
	TotalPlayers int
	MinPlayers   int
}

// PlayerReadyEvent reports a change in a player's ready flag
type PlayerReadyEvent struct {
	PlayerID string
	Name     string
	IsReady  bool
	Snapshot Snapshot
}

type CountdownStartedEvent struct {
	Seconds int
}

type CountdownUpdateEvent struct {
	Seconds int
}

type CountdownCancelledEvent struct {
	Snapshot Snapshot
}

// GameStartedEvent carries the freshly dealt table
type GameStartedEvent struct {
	Snapshot Snapshot
}

// PlayerTurnEvent names the newly active player
type PlayerTurnEvent struct {
	PlayerID string
	Name     string
	Index    int
	Snapshot Snapshot
}

// TurnTimerStartedEvent fires whenever a turn timeout is armed
type TurnTimerStartedEvent struct {
	PlayerID string
	Seconds  int
}

type PlayerHitEvent struct {
	PlayerID string
	Card     deck.Card
	Score    int
	Snapshot Snapshot
}

type PlayerStandEvent struct {
	PlayerID string
	Score    int
	Snapshot Snapshot
}

// PlayerBustEvent carries the card that broke the hand
type PlayerBustEvent struct {
	PlayerID string
	Card     deck.Card
	Score    int
	Snapshot Snapshot
}

// PlayerTimeoutEvent is an implicit stand after the turn timer expired
type PlayerTimeoutEvent struct {
	PlayerID string
	Name     string
	Snapshot Snapshot
}

// DealerTurnEvent reveals the dealer's hole card
type DealerTurnEvent struct {
	Snapshot Snapshot
}

type DealerHitEvent struct {
	Card     deck.Card
	Score    int
	Snapshot Snapshot
}

type DealerBustEvent struct {
	Score    int
	Snapshot Snapshot
}

type DealerStandEvent struct {
	Score    int
	Snapshot Snapshot
}

// GameOverEvent carries one result per seated player
type GameOverEvent struct {
	Results  []Result
	Snapshot Snapshot
}

// StateUpdatedEvent is a plain state broadcast
type StateUpdatedEvent struct {
	Snapshot Snapshot
}

type PlayerRenamedEvent struct {
	PlayerID string
	OldName  string
	NewName  string
	Snapshot Snapshot
}

func (JoinedEvent) EventType() EventType             { return EventTypeJoined }
func (LeftEvent) EventType() EventType               { return EventTypeLeft }
func (PlayerJoinedEvent) EventType() EventType       { return EventTypePlayerJoined }
func (PlayerLeftEvent) EventType() EventType         { return EventTypePlayerLeft }
func (ReadyToStartEvent) EventType() EventType       { return EventTypeReadyToStart }
func (PlayerReadyEvent) EventType() EventType        { return EventTypePlayerReady }
func (CountdownStartedEvent) EventType() EventType   { return EventTypeCountdownStarted }
func (CountdownUpdateEvent) EventType() EventType    { return EventTypeCountdownUpdate }
func (CountdownCancelledEvent) EventType() EventType { return EventTypeCountdownCancelled }
func (GameStartedEvent) EventType() EventType        { return EventTypeGameStarted }
func (PlayerTurnEvent) EventType() EventType         { return EventTypePlayerTurn }
func (TurnTimerStartedEvent) EventType() EventType   { return EventTypeTurnTimerStarted }
func (PlayerHitEvent) EventType() EventType          { return EventTypePlayerHit }
func (PlayerStandEvent) EventType() EventType        { return EventTypePlayerStand }
func (PlayerBustEvent) EventType() EventType         { return EventTypePlayerBust }
func (PlayerTimeoutEvent) EventType() EventType      { return EventTypePlayerTimeout }
func (DealerTurnEvent) EventType() EventType         { return EventTypeDealerTurn }
func (DealerHitEvent) EventType() EventType          { return EventTypeDealerHit }
func (DealerBustEvent) EventType() EventType         { return EventTypeDealerBust }
func (DealerStandEvent) EventType() EventType        { return EventTypeDealerStand }
func (GameOverEvent) EventType() EventType           { return EventTypeGameOver }
func (StateUpdatedEvent) EventType() EventType       { return EventTypeStateUpdated }
func (PlayerRenamedEvent) EventType() EventType      { return EventTypePlayerRenamed }
