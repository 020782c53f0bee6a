package exotype

import (
	"math"
	"math/rand"

	"proteus/internal/sigil"
)

// Context carries the window statistics one classification is derived from.
type Context struct {
	WStart     int
	WEnd       int
	ChangeRate float64
	Entropy    float64
}

// SampleContext draws one window start uniformly from the valid range and
// computes its statistics. It reports false, without consuming any rng
// draws, when the history is too short for a full window.
func SampleContext(a sigil.Alphabet, genoHist []sigil.Genotype, phenoHist []sigil.Phenotype, rng *rand.Rand, width int) (Context, bool) {
	if width < 2 || len(genoHist) < width || len(phenoHist) != len(genoHist) {
		return Context{}, false
	}
	start := rng.Intn(len(genoHist) - width + 1)
	return windowContext(a, genoHist, start, width), true
}

func windowContext(a sigil.Alphabet, genoHist []sigil.Genotype, start, width int) Context {
	window := genoHist[start : start+width]
	return Context{
		WStart:     start,
		WEnd:       start + width,
		ChangeRate: meanChangeRate(window),
		Entropy:    normalizedEntropy(a, window),
	}
}

// meanChangeRate averages per-tick change fractions across the window. The
// window's first tick has no in-window predecessor and contributes nothing.
func meanChangeRate(window []sigil.Genotype) float64 {
	if len(window) < 2 {
		return 0
	}
	total := 0.0
	for t := 1; t < len(window); t++ {
		total += changeFraction(window[t-1], window[t])
	}
	return total / float64(len(window)-1)
}

func changeFraction(prev, next sigil.Genotype) float64 {
	if len(prev) == 0 || len(prev) != len(next) {
		return 0
	}
	changed := 0
	for i := range next {
		if next[i] != prev[i] {
			changed++
		}
	}
	return float64(changed) / float64(len(next))
}

// normalizedEntropy computes Shannon entropy of sigil frequencies over all
// window cells, normalized by log2 of the alphabet size.
func normalizedEntropy(a sigil.Alphabet, window []sigil.Genotype) float64 {
	if a.Size() < 2 {
		return 0
	}
	counts := make(map[sigil.Sigil]int)
	total := 0
	for _, g := range window {
		for _, s := range g {
			counts[s]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(a.Size()))
}
