package protocol

import (
	"strings"
	"time"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/evaluator"
	"github.com/lox/twentyone/internal/game"
)

// NewCard converts a deck card to its wire form
func NewCard(c deck.Card) Card {
	return Card{Suit: c.Suit.Name(), Value: c.Rank.Value()}
}

func newCards(cards []deck.Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = NewCard(c)
	}
	return out
}

// NewPlayer converts a player view
func NewPlayer(p game.PlayerView) Player {
	return Player{
		ID:       p.ID,
		Name:     p.Name,
		Hand:     newCards(p.Hand),
		Score:    p.Score,
		IsActive: p.IsActive,
		HasStood: p.HasStood,
		IsBust:   p.IsBust,
		IsReady:  p.IsReady,
	}
}

// NewPlayers converts a roster
func NewPlayers(players []game.PlayerView) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = NewPlayer(p)
	}
	return out
}

// NewDealer converts the dealer view. Until the view is revealed every
// card after the first is masked and the score counts the first card only.
func NewDealer(d game.DealerView) Dealer {
	out := Dealer{
		ID:       game.DealerID,
		Name:     game.DealerName,
		Hand:     newCards(d.Hand),
		Score:    d.Score,
		IsActive: d.IsActive,
		HasStood: d.HasStood,
		IsBust:   d.IsBust,
	}
	if d.Revealed {
		return out
	}

	for i := 1; i < len(out.Hand); i++ {
		out.Hand[i] = HiddenCard
	}
	out.Score = 0
	if len(d.Hand) > 0 {
		out.Score = evaluator.CardValue(d.Hand[0])
	}
	out.IsBust = false
	return out
}

// NewResult converts a settled hand
func NewResult(r game.Result) Result {
	return Result{
		PlayerID:    r.PlayerID,
		Name:        r.Name,
		Score:       r.Score,
		DealerScore: r.DealerScore,
		Outcome:     r.Outcome.String(),
		Blackjack:   r.Blackjack,
		Line:        r.Line(),
	}
}

// ResultLines joins the per-player result lines, one per line
func ResultLines(results []Result) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.Line
	}
	return strings.Join(lines, "\n")
}

// StateMessage builds a message of the given action carrying the full
// table state from snap.
func StateMessage(action string, snap game.Snapshot) Message {
	dealer := NewDealer(snap.Dealer)
	msg := Message{
		Action:             action,
		RoomID:             snap.RoomID,
		Players:            NewPlayers(snap.Players),
		Dealer:             &dealer,
		CurrentPlayerIndex: IntPtr(snap.CurrentPlayerIndex),
		GamePhase:          snap.State.String(),
		TotalPlayers:       len(snap.Players),
	}
	if p, ok := snap.CurrentPlayer(); ok {
		msg.CurrentPlayer = p.ID
	}
	return msg
}

// NewRoomConfig converts a room config to its fully populated wire form
func NewRoomConfig(c game.RoomConfig) *RoomConfig {
	return &RoomConfig{
		MaxPlayers:       IntPtr(c.MaxPlayers),
		CountdownSeconds: IntPtr(c.CountdownSeconds),
		PlayerTimeout: &PlayerTimeout{
			Enabled:         BoolPtr(c.PlayerTimeout.Enabled),
			DurationSeconds: IntPtr(c.PlayerTimeout.DurationSeconds),
		},
		AutoStart:  BoolPtr(c.AutoStart),
		MinPlayers: IntPtr(c.MinPlayers),
	}
}

// Overrides converts a client-supplied partial config
func (c *RoomConfig) Overrides() game.ConfigOverrides {
	if c == nil {
		return game.ConfigOverrides{}
	}
	o := game.ConfigOverrides{
		MaxPlayers:       c.MaxPlayers,
		CountdownSeconds: c.CountdownSeconds,
		AutoStart:        c.AutoStart,
		MinPlayers:       c.MinPlayers,
	}
	if c.PlayerTimeout != nil {
		o.TimeoutEnabled = c.PlayerTimeout.Enabled
		o.TimeoutSeconds = c.PlayerTimeout.DurationSeconds
	}
	return o
}

// NewRoomSummary converts a room listing entry
func NewRoomSummary(s game.Summary) RoomSummary {
	return RoomSummary{
		ID:         s.ID,
		State:      s.State.String(),
		Players:    s.Players,
		MaxPlayers: s.MaxPlayers,
		MinPlayers: s.MinPlayers,
		AutoStart:  s.AutoStart,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
