package game

import (
	"time"

	"github.com/lox/twentyone/internal/deck"
)

// State is the room lifecycle phase
type State int

const (
	StateWaiting State = iota
	StateCountdown
	StatePlaying
	StateDealerTurn
	StateEnded
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateCountdown:
		return "countdown"
	case StatePlaying:
		return "playing"
	case StateDealerTurn:
		return "dealer_turn"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Joinable reports whether new players may take a seat
func (s State) Joinable() bool {
	return s == StateWaiting || s == StateCountdown
}

// PlayerView is a copy of a player's public state
type PlayerView struct {
	ID       string
	Name     string
	Hand     []deck.Card
	Score    int
	IsActive bool
	HasStood bool
	IsBust   bool
	IsReady  bool
}

// DealerView is a copy of the dealer's state. Revealed is false while
// players are still acting; consumers must hide every card after the first.
type DealerView struct {
	Hand     []deck.Card
	Score    int
	IsActive bool
	HasStood bool
	IsBust   bool
	Revealed bool
}

// Snapshot is a consistent copy of a room taken under its lock
type Snapshot struct {
	RoomID             string
	State              State
	Players            []PlayerView
	Dealer             DealerView
	CurrentPlayerIndex int
	CountdownRemaining int
	DeckRemaining      int
	HandsPlayed        int
	Config             RoomConfig
}

// Player returns the view of playerID, if seated
func (s Snapshot) Player(playerID string) (PlayerView, bool) {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return PlayerView{}, false
}

// CurrentPlayer returns the active player's view, if any
func (s Snapshot) CurrentPlayer() (PlayerView, bool) {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return PlayerView{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// Summary describes a room for listings
type Summary struct {
	ID         string
	State      State
	Players    int
	MaxPlayers int
	MinPlayers int
	AutoStart  bool
	CreatedAt  time.Time
}

func viewPlayer(p *Player) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Hand:     append([]deck.Card(nil), p.Hand...),
		Score:    p.Score,
		IsActive: p.IsActive,
		HasStood: p.HasStood,
		IsBust:   p.IsBust,
		IsReady:  p.IsReady,
	}
}

func viewDealer(d *Dealer, state State) DealerView {
	return DealerView{
		Hand:     append([]deck.Card(nil), d.Hand...),
		Score:    d.Score,
		IsActive: d.IsActive,
		HasStood: d.HasStood,
		IsBust:   d.IsBust,
		Revealed: state != StatePlaying,
	}
}
