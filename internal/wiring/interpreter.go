package wiring

import (
	"math/rand"

	"proteus/internal/sigil"
)

// Interpreter evaluates diagrams against neighborhoods. The zero value is
// unusable; construct with the run's alphabet.
type Interpreter struct {
	Alphabet sigil.Alphabet
}

// Evaluate applies one diagram to one cell and reports whether the update
// was applied. The probability draw is consumed on every call, before either
// gate can short-circuit, so the rng position never depends on match
// outcomes. Scramble permutation draws happen only when the update applies.
func (it Interpreter) Evaluate(d Diagram, neigh Neighborhood, current sigil.Sigil, rng *rand.Rand) (sigil.Sigil, bool) {
	draw := rng.Float64()
	if len(neigh) == 0 {
		return current, false
	}
	if Agreement(neigh) < d.MatchThreshold {
		return current, false
	}
	if draw >= d.UpdateProbability {
		return current, false
	}
	return it.mix(d.MixMode, neigh, rng), true
}

// Agreement scores a neighborhood as the dominance of its most frequent
// sigil: count(mode symbol) / window size. All-equal windows score 1.
func Agreement(neigh Neighborhood) float64 {
	if len(neigh) == 0 {
		return 0
	}
	counts := make(map[sigil.Sigil]int, len(neigh))
	best := 0
	for _, s := range neigh {
		counts[s]++
		if counts[s] > best {
			best = counts[s]
		}
	}
	return float64(best) / float64(len(neigh))
}

func (it Interpreter) mix(mode MixMode, neigh Neighborhood, rng *rand.Rand) sigil.Sigil {
	center := len(neigh) / 2
	switch mode {
	case MixMajority:
		return it.mixMajority(neigh)
	case MixXORNeighbor:
		sum := 0
		for _, s := range neigh {
			sum += it.Alphabet.Index(s)
		}
		return it.Alphabet.Symbol(sum)
	case MixScramble:
		shuffled := append(Neighborhood(nil), neigh...)
		for j := len(shuffled) - 1; j > 0; j-- {
			k := rng.Intn(j + 1)
			shuffled[j], shuffled[k] = shuffled[k], shuffled[j]
		}
		return shuffled[center]
	case MixSwapHalves:
		swapped := make(Neighborhood, 0, len(neigh))
		swapped = append(swapped, neigh[center:]...)
		swapped = append(swapped, neigh[:center]...)
		return swapped[center]
	case MixRotateRight:
		return neigh[(center-1+len(neigh))%len(neigh)]
	default:
		// Validate rejects unknown modes before any evaluation runs.
		return neigh[center]
	}
}

// mixMajority votes over the window; ties break toward the symbol earliest
// in alphabet order. Scanning the alphabet rather than the count map keeps
// the tie-break independent of map iteration order.
func (it Interpreter) mixMajority(neigh Neighborhood) sigil.Sigil {
	counts := make(map[sigil.Sigil]int, len(neigh))
	for _, s := range neigh {
		counts[s]++
	}
	winner := neigh[len(neigh)/2]
	best := 0
	for i := 0; i < it.Alphabet.Size(); i++ {
		s := it.Alphabet.Symbol(i)
		if counts[s] > best {
			winner = s
			best = counts[s]
		}
	}
	return winner
}
