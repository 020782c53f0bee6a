package metrics

import (
	"math"

	"proteus/internal/model"
	"proteus/internal/sigil"
)

// Params fixes the windowing geometry. Width counts snapshots per window,
// Stride counts snapshots between window starts.
type Params struct {
	Width  int
	Stride int
}

func (p Params) validate() error {
	if p.Width < 2 {
		return model.NewConfigError("metrics", "window width must be >= 2, got %d", p.Width)
	}
	if p.Stride < 1 {
		return model.NewConfigError("metrics", "stride must be >= 1, got %d", p.Stride)
	}
	return nil
}

// RawStats are the four per-window statistics every derived axis and the
// run score are computed from.
type RawStats struct {
	ChangeRate float64
	Diversity  float64
	Entropy    float64
	Autocorr   float64
}

// Window is one scored slice of a run history.
type Window struct {
	WStart int
	WEnd   int
	Raw    RawStats

	Pressure    float64
	Selectivity float64
	Structure   float64
	Activity    float64
	Regime      string
}

// WindowedMacroFeatures slices a history into fixed-width windows at a
// fixed stride and derives macro statistics per window. For history length
// H the window count is floor((H-W)/S)+1 when H >= W, else zero; a
// trailing partial window is dropped, never padded. Pure: the same
// (history, params) always yields identical output.
func WindowedMacroFeatures(a sigil.Alphabet, history []sigil.Genotype, p Params) ([]Window, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(history) < p.Width {
		return []Window{}, nil
	}
	count := (len(history)-p.Width)/p.Stride + 1
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := i * p.Stride
		windows = append(windows, scoreWindow(a, history[start:start+p.Width], start))
	}
	return windows, nil
}

func scoreWindow(a sigil.Alphabet, slice []sigil.Genotype, start int) Window {
	raw := rawStats(a, slice)
	w := Window{
		WStart:      start,
		WEnd:        start + len(slice),
		Raw:         raw,
		Activity:    raw.ChangeRate,
		Structure:   1 - raw.Entropy,
		Selectivity: 1 - raw.Diversity,
		Pressure:    (raw.Autocorr + 1) / 2,
	}
	w.Regime = RegimeFor(raw)
	return w
}

// rawStats computes the window's statistics in one pass over its cells.
// The window is self-contained: its first tick has no in-window
// predecessor and contributes no change comparison.
func rawStats(a sigil.Alphabet, slice []sigil.Genotype) RawStats {
	changes := changeSeries(slice)
	entropy, unique := symbolEntropy(a, slice)
	raw := RawStats{
		ChangeRate: mean(changes),
		Entropy:    entropy,
		Autocorr:   lag1Autocorr(changes),
	}
	if a.Size() > 0 {
		raw.Diversity = float64(unique) / float64(a.Size())
	}
	return raw
}

func changeSeries(slice []sigil.Genotype) []float64 {
	if len(slice) < 2 {
		return nil
	}
	series := make([]float64, 0, len(slice)-1)
	for t := 1; t < len(slice); t++ {
		prev, next := slice[t-1], slice[t]
		if len(prev) == 0 || len(prev) != len(next) {
			series = append(series, 0)
			continue
		}
		changed := 0
		for i := range next {
			if next[i] != prev[i] {
				changed++
			}
		}
		series = append(series, float64(changed)/float64(len(next)))
	}
	return series
}

// symbolEntropy returns the normalized Shannon entropy of sigil
// frequencies over all window cells and the distinct symbol count.
func symbolEntropy(a sigil.Alphabet, slice []sigil.Genotype) (float64, int) {
	counts := make(map[sigil.Sigil]int)
	total := 0
	for _, g := range slice {
		for _, s := range g {
			counts[s]++
			total++
		}
	}
	if total == 0 || a.Size() < 2 {
		return 0, len(counts)
	}
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(a.Size())), len(counts)
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range series {
		total += v
	}
	return total / float64(len(series))
}

// lag1Autocorr is the lag-1 autocorrelation of the change series. A series
// too short to correlate, or one with no variance, scores 0.
func lag1Autocorr(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	m := mean(series)
	num, den := 0.0, 0.0
	for t, v := range series {
		den += (v - m) * (v - m)
		if t > 0 {
			num += (v - m) * (series[t-1] - m)
		}
	}
	if den < 1e-12 {
		return 0
	}
	return num / den
}
