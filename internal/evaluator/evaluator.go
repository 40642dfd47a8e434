// Package evaluator scores Blackjack hands.
//
// Number cards count their face value, J/Q/K count 10 and an Ace counts 11
// until the total would exceed 21, at which point Aces are demoted to 1 one
// at a time. All functions are pure.
package evaluator

import (
	"github.com/lox/twentyone/internal/deck"
)

const (
	// Target is the best possible hand total
	Target = 21

	// DealerStandsOn is the total at which the dealer stops drawing
	DealerStandsOn = 17

	aceDemotion = 10
)

// CardValue returns the value of a single card with an Ace counted as 11
func CardValue(c deck.Card) int {
	switch {
	case c.Rank == deck.Ace:
		return 11
	case c.Rank.IsFace():
		return 10
	default:
		return int(c.Rank)
	}
}

// Score returns the best Blackjack total for cards
func Score(cards []deck.Card) int {
	total, _ := score(cards)
	return total
}

// IsSoft reports whether the best total still counts an Ace as 11
func IsSoft(cards []deck.Card) bool {
	_, soft := score(cards)
	return soft > 0
}

// IsBust reports whether the hand exceeds 21
func IsBust(cards []deck.Card) bool {
	return Score(cards) > Target
}

// IsBlackjack reports a natural: exactly two cards totalling 21
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && Score(cards) == Target
}

// DealerShouldHit reports whether a dealer holding cards must draw again.
// The dealer stands on every 17, soft or hard.
func DealerShouldHit(cards []deck.Card) bool {
	return Score(cards) < DealerStandsOn
}

func score(cards []deck.Card) (total int, softAces int) {
	for _, c := range cards {
		total += CardValue(c)
		if c.IsAce() {
			softAces++
		}
	}
	for total > Target && softAces > 0 {
		total -= aceDemotion
		softAces--
	}
	return total, softAces
}
