package exotype

import (
	"fmt"
	"math/rand"

	"proteus/internal/sigil"
)

// SampleDistribution classifies n randomly placed windows of a completed
// run and returns hexagram id frequencies. Pure given the rng seed: the
// same seed over the same history reproduces the same counts. A history
// shorter than the window yields empty counts, not an error.
func SampleDistribution(a sigil.Alphabet, t *Table, genoHist []sigil.Genotype, phenoHist []sigil.Phenotype, rng *rand.Rand, width, samples int) (map[int]int, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("samples must be > 0, got %d", samples)
	}
	if width < 2 {
		return nil, fmt.Errorf("window width must be >= 2, got %d", width)
	}
	if t == nil {
		t = DefaultTable()
	}
	counts := make(map[int]int)
	for i := 0; i < samples; i++ {
		ctx, ok := SampleContext(a, genoHist, phenoHist, rng, width)
		if !ok {
			return counts, nil
		}
		family := Classify(t, ctx)
		counts[family.HexagramID]++
	}
	return counts, nil
}
