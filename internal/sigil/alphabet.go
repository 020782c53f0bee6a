package sigil

import (
	"math/rand"

	"proteus/internal/model"
)

// Sigil is one symbol of the finite automaton alphabet.
type Sigil byte

// Bit is one phenotype cell; only values 0 and 1 are legal.
type Bit byte

type Genotype []Sigil

type Phenotype []Bit

// Alphabet is a fixed, ordered symbol set. Symbol order is significant: it
// breaks ties in majority votes and defines the index arithmetic used by
// xor-neighbor mixing.
type Alphabet struct {
	symbols []Sigil
	index   map[Sigil]int
}

const (
	BinarySymbols = "AB"
	QuadSymbols   = "ABCD"
	OctalSymbols  = "ABCDEFGH"
)

func NewAlphabet(symbols string) (Alphabet, error) {
	if len(symbols) < 2 {
		return Alphabet{}, model.NewConfigError("alphabet", "need at least 2 symbols, got %d", len(symbols))
	}
	index := make(map[Sigil]int, len(symbols))
	ordered := make([]Sigil, 0, len(symbols))
	for i := 0; i < len(symbols); i++ {
		s := Sigil(symbols[i])
		if _, dup := index[s]; dup {
			return Alphabet{}, model.NewConfigError("alphabet", "duplicate symbol %q", string(symbols[i]))
		}
		index[s] = i
		ordered = append(ordered, s)
	}
	return Alphabet{symbols: ordered, index: index}, nil
}

func MustAlphabet(symbols string) Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Alphabet) Size() int {
	return len(a.symbols)
}

func (a Alphabet) Symbols() string {
	b := make([]byte, len(a.symbols))
	for i, s := range a.symbols {
		b[i] = byte(s)
	}
	return string(b)
}

// Index returns the position of s in the alphabet order, or -1.
func (a Alphabet) Index(s Sigil) int {
	i, ok := a.index[s]
	if !ok {
		return -1
	}
	return i
}

// Symbol returns the sigil at position i mod the alphabet size.
func (a Alphabet) Symbol(i int) Sigil {
	n := len(a.symbols)
	i %= n
	if i < 0 {
		i += n
	}
	return a.symbols[i]
}

func (a Alphabet) Contains(s Sigil) bool {
	_, ok := a.index[s]
	return ok
}

// Validate checks alphabet closure over an entire genotype.
func (a Alphabet) Validate(g Genotype) error {
	for i, s := range g {
		if !a.Contains(s) {
			return model.NewConfigError("genotype", "symbol %q at cell %d is not in alphabet %s", string(byte(s)), i, a.Symbols())
		}
	}
	return nil
}

func (a Alphabet) RandomGenotype(rng *rand.Rand, length int) Genotype {
	g := make(Genotype, length)
	for i := range g {
		g[i] = a.symbols[rng.Intn(len(a.symbols))]
	}
	return g
}

func RandomPhenotype(rng *rand.Rand, length int) Phenotype {
	p := make(Phenotype, length)
	for i := range p {
		p[i] = Bit(rng.Intn(2))
	}
	return p
}
