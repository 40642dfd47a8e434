package roomid

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// Prefix starts every generated room ID
	Prefix = "R_"

	digits = 5
	space  = 100000
)

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator produces room IDs of the form "R_01234"
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource.
// A nil source uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room ID using the generator's RandSource
func (g *Generator) Generate() string {
	return fmt.Sprintf("%s%0*d", Prefix, digits, g.next())
}

func (g *Generator) next() int {
	if g.randSource != nil {
		return g.randSource.Intn(space)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(space))
	if err != nil {
		panic("failed to generate random room id: " + err.Error())
	}
	return int(n.Int64())
}

// Validate checks that id looks like a generated room ID
func Validate(id string) error {
	if len(id) != len(Prefix)+digits {
		return fmt.Errorf("room ID must be exactly %d characters, got %d", len(Prefix)+digits, len(id))
	}
	if id[:len(Prefix)] != Prefix {
		return fmt.Errorf("room ID must start with %q", Prefix)
	}
	for i, char := range id[len(Prefix):] {
		if char < '0' || char > '9' {
			return fmt.Errorf("invalid character %c at position %d", char, i+len(Prefix))
		}
	}
	return nil
}
