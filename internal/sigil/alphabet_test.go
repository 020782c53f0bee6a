package sigil

import (
	"errors"
	"math/rand"
	"testing"

	"proteus/internal/model"
)

func TestNewAlphabetRejectsShortAndDuplicateSymbolSets(t *testing.T) {
	if _, err := NewAlphabet("A"); err == nil {
		t.Fatalf("expected error for single-symbol alphabet")
	}
	_, err := NewAlphabet("ABA")
	if err == nil {
		t.Fatalf("expected error for duplicate symbol")
	}
	var cfgErr model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Field != "alphabet" {
		t.Fatalf("unexpected field: %s", cfgErr.Field)
	}
}

func TestAlphabetOrderDrivesIndexAndSymbol(t *testing.T) {
	a, err := NewAlphabet(QuadSymbols)
	if err != nil {
		t.Fatalf("new alphabet: %v", err)
	}
	if a.Size() != 4 {
		t.Fatalf("size: got=%d want=4", a.Size())
	}
	if got := a.Index('C'); got != 2 {
		t.Fatalf("index of C: got=%d want=2", got)
	}
	if got := a.Index('Z'); got != -1 {
		t.Fatalf("index of unknown symbol: got=%d want=-1", got)
	}
	if got := a.Symbol(5); got != 'B' {
		t.Fatalf("symbol(5) should wrap to B, got %q", string(byte(got)))
	}
	if got := a.Symbol(-1); got != 'D' {
		t.Fatalf("symbol(-1) should wrap to D, got %q", string(byte(got)))
	}
}

func TestParseGenotypeEnforcesAlphabetClosure(t *testing.T) {
	a := MustAlphabet(BinarySymbols)
	g, err := ParseGenotype(a, "ABAB")
	if err != nil {
		t.Fatalf("parse genotype: %v", err)
	}
	if g.String() != "ABAB" {
		t.Fatalf("round trip: got=%s want=ABAB", g.String())
	}
	if _, err := ParseGenotype(a, "ABCA"); err == nil {
		t.Fatalf("expected error for out-of-alphabet symbol")
	}
	if err := a.Validate(g); err != nil {
		t.Fatalf("validate: %v", err)
	}
	g[1] = 'X'
	if err := a.Validate(g); err == nil {
		t.Fatalf("expected validation error after corruption")
	}
}

func TestParsePhenotypeAcceptsOnlyBits(t *testing.T) {
	p, err := ParsePhenotype("0110")
	if err != nil {
		t.Fatalf("parse phenotype: %v", err)
	}
	if p.String() != "0110" {
		t.Fatalf("round trip: got=%s want=0110", p.String())
	}
	if _, err := ParsePhenotype("01a0"); err == nil {
		t.Fatalf("expected error for non-bit character")
	}
}

func TestRandomTapesAreSeedDeterministic(t *testing.T) {
	a := MustAlphabet(OctalSymbols)
	first := a.RandomGenotype(rand.New(rand.NewSource(7)), 32)
	second := a.RandomGenotype(rand.New(rand.NewSource(7)), 32)
	if first.String() != second.String() {
		t.Fatalf("same seed produced different genotypes: %s vs %s", first, second)
	}
	other := a.RandomGenotype(rand.New(rand.NewSource(8)), 32)
	if first.String() == other.String() {
		t.Fatalf("different seeds produced identical genotypes")
	}
	if err := a.Validate(first); err != nil {
		t.Fatalf("random genotype escaped alphabet: %v", err)
	}

	p1 := RandomPhenotype(rand.New(rand.NewSource(7)), 32)
	p2 := RandomPhenotype(rand.New(rand.NewSource(7)), 32)
	if p1.String() != p2.String() {
		t.Fatalf("same seed produced different phenotypes: %s vs %s", p1, p2)
	}
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	a := MustAlphabet(BinarySymbols)
	g, err := ParseGenotype(a, "AABB")
	if err != nil {
		t.Fatalf("parse genotype: %v", err)
	}
	clone := g.Clone()
	clone[0] = 'B'
	if g.String() != "AABB" {
		t.Fatalf("clone mutation leaked into original: %s", g.String())
	}
}
