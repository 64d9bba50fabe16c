// Package guid generates note identifiers and keeps them unique within a conversion run.
package guid

import (
	"math/rand/v2"
	"strings"
)

// Length is the number of random characters in a generated identifier
const Length = 10

// Separator joins a deck prefix to the random part
const Separator = "-"

// Alphabet is letters, digits and punctuation without the two quote characters.
const Alphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!#$%&()*+,-./:;<=>?@[\\]^_`{|}~"

// Generator produces random opaque tokens, optionally prefixed with a language code.
type Generator struct {
	Prefix string
	// IntN draws from [0, n); defaults to math/rand/v2.
	IntN func(n int) int
}

// NewGenerator returns a generator backed by the global non-cryptographic source
func NewGenerator(prefix string) *Generator {
	return &Generator{Prefix: prefix}
}

// Next returns a new token. Successive calls are not reproducible.
func (g *Generator) Next() string {
	intN := g.IntN
	if intN == nil {
		intN = rand.IntN
	}

	var b strings.Builder
	if g.Prefix != "" {
		b.Grow(len(g.Prefix) + len(Separator) + Length)
		b.WriteString(g.Prefix)
		b.WriteString(Separator)
	}
	for i := 0; i < Length; i++ {
		b.WriteByte(Alphabet[intN(len(Alphabet))])
	}
	return b.String()
}
