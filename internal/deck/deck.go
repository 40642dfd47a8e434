package deck

import (
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck
const Size = 52

// Shuffler orders a freshly built set of cards in place
type Shuffler interface {
	Shuffle(cards []Card)
}

// RandomShuffler is a Fisher-Yates shuffle driven by rng
type RandomShuffler struct {
	rng *rand.Rand
}

// NewRandomShuffler returns a shuffler using the provided random source
func NewRandomShuffler(rng *rand.Rand) *RandomShuffler {
	return &RandomShuffler{rng: rng}
}

// Shuffle randomizes the order of cards
func (s *RandomShuffler) Shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// StackedShuffler puts a fixed sequence on top of the deck, leaving the rest
// in canonical order. Used to rig hands in tests.
type StackedShuffler struct {
	top []Card
}

// Stacked returns a shuffler that deals the given cards first, in order
func Stacked(top ...Card) *StackedShuffler {
	return &StackedShuffler{top: top}
}

// Shuffle moves the stacked cards to the front of cards
func (s *StackedShuffler) Shuffle(cards []Card) {
	pos := 0
	for _, want := range s.top {
		for i := pos; i < len(cards); i++ {
			if cards[i] == want {
				cards[pos], cards[i] = cards[i], cards[pos]
				pos++
				break
			}
		}
	}
}

// Deck represents a deck of playing cards. The zero-index card is the top.
type Deck struct {
	cards    []Card
	shuffler Shuffler
	epoch    int
}

// NewDeck creates a freshly shuffled 52-card deck
func NewDeck(shuffler Shuffler) *Deck {
	d := &Deck{
		cards:    make([]Card, 0, Size),
		shuffler: shuffler,
	}
	d.Shuffle()
	return d
}

// NewCards returns the 52 cards in canonical order
func NewCards() []Card {
	cards := make([]Card, 0, Size)
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle discards whatever is left and builds a new shuffled 52-card set
func (d *Deck) Shuffle() {
	d.cards = append(d.cards[:0], NewCards()...)
	if d.shuffler != nil {
		d.shuffler.Shuffle(d.cards)
	}
	d.epoch++
}

// Deal removes and returns the top card, reshuffling a new deck first when empty
func (d *Deck) Deal() Card {
	if len(d.cards) == 0 {
		d.Shuffle()
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card
}

// Remaining returns the number of cards left in the current shuffle epoch
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Epoch counts shuffles; it increases every time a fresh 52-card set is built
func (d *Deck) Epoch() int {
	return d.epoch
}
