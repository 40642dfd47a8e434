package game

import (
	"fmt"

	"github.com/lox/twentyone/internal/evaluator"
)

// Outcome is the result of one player's hand against the dealer
type Outcome int

const (
	PlayerWins Outcome = iota
	DealerWins
	Tie
)

func (o Outcome) String() string {
	switch o {
	case PlayerWins:
		return "Player Wins"
	case DealerWins:
		return "Dealer Wins"
	case Tie:
		return "Tie"
	default:
		return "Unknown"
	}
}

// Result is one settled hand
type Result struct {
	PlayerID    string
	Name        string
	Score       int
	DealerScore int
	PlayerBust  bool
	DealerBust  bool
	Blackjack   bool
	Outcome     Outcome
}

// Line renders the result the way it is shown to players
func (r Result) Line() string {
	switch {
	case r.PlayerBust:
		return fmt.Sprintf("%s: Bust! Dealer Wins", r.Name)
	case r.DealerBust:
		return fmt.Sprintf("%s: Dealer Bust! Player Wins", r.Name)
	case r.Outcome == Tie:
		return fmt.Sprintf("%s: Tie (%d)", r.Name, r.Score)
	case r.Outcome == PlayerWins:
		return fmt.Sprintf("%s: Player Wins (%d vs %d)", r.Name, r.Score, r.DealerScore)
	default:
		return fmt.Sprintf("%s: Dealer Wins (%d vs %d)", r.Name, r.DealerScore, r.Score)
	}
}

// Settle compares a finished player hand with the dealer's
func Settle(p *Player, d *Dealer) Result {
	r := Result{
		PlayerID:    p.ID,
		Name:        p.Name,
		Score:       p.Score,
		DealerScore: d.Score,
		PlayerBust:  p.IsBust,
		DealerBust:  d.IsBust,
		Blackjack:   evaluator.IsBlackjack(p.Hand),
	}

	switch {
	case p.IsBust:
		r.Outcome = DealerWins
	case d.IsBust:
		r.Outcome = PlayerWins
	case p.Score > d.Score:
		r.Outcome = PlayerWins
	case p.Score < d.Score:
		r.Outcome = DealerWins
	default:
		r.Outcome = Tie
	}
	return r
}
