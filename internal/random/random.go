package random

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters generates n cryptographically random letters, e.g. for unique database names.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(allowedLetters))))
		if err != nil {
			return "", err
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}

// Roller produces rolls in [0, 1) for probability-gated decisions. Injecting it
// keeps reveal and investigation outcomes reproducible in tests.
type Roller interface {
	Roll() float64
}

type seededRoller struct {
	rng *mathrand.Rand
}

// NewRoller returns a Roller seeded with the given seed. The same seed yields
// the same roll sequence.
func NewRoller(seed uint64) Roller {
	return &seededRoller{rng: mathrand.New(mathrand.NewPCG(seed, seed))}
}

func (r *seededRoller) Roll() float64 {
	return r.rng.Float64()
}

// FixedRoller always returns the same value. Useful for forcing a probability
// gate open (0) or closed (1) in tests.
type FixedRoller float64

func (r FixedRoller) Roll() float64 {
	return float64(r)
}
