package game

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lox/twentyone/internal/deck"
	"github.com/lox/twentyone/internal/evaluator"
)

const (
	DealerID   = "dealer"
	DealerName = "Dealer"

	// MaxNameLength is the longest display name accepted, in runes
	MaxNameLength = 24

	defaultNamePrefix = "Player_"
)

// Player is one seat at a room. Hand order is deal order.
type Player struct {
	ID       string
	Name     string
	Hand     []deck.Card
	Score    int
	IsActive bool
	HasStood bool
	IsBust   bool
	IsReady  bool
}

func newPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name}
}

// AddCard appends a card and recomputes the score and bust flag
func (p *Player) AddCard(c deck.Card) {
	p.Hand = append(p.Hand, c)
	p.Score = evaluator.Score(p.Hand)
	p.IsBust = p.Score > evaluator.Target
}

// Finished reports whether the player has nothing left to do this hand
func (p *Player) Finished() bool {
	return p.HasStood || p.IsBust
}

func (p *Player) resetForHand() {
	p.Hand = nil
	p.Score = 0
	p.IsActive = false
	p.HasStood = false
	p.IsBust = false
}

func (p *Player) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.ID)
}

// Dealer is the house hand. A fresh one is created for every hand.
type Dealer struct {
	Hand     []deck.Card
	Score    int
	IsActive bool
	HasStood bool
	IsBust   bool
}

func newDealer() *Dealer {
	return &Dealer{}
}

// AddCard appends a card and recomputes the score and bust flag
func (d *Dealer) AddCard(c deck.Card) {
	d.Hand = append(d.Hand, c)
	d.Score = evaluator.Score(d.Hand)
	d.IsBust = d.Score > evaluator.Target
}

// DefaultName derives a display name from a player id
func DefaultName(playerID string) string {
	short := playerID
	if len(short) > 5 {
		short = short[:5]
	}
	return defaultNamePrefix + short
}

// ValidateName trims name and checks it is usable as a display name
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}
