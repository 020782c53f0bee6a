package metrics

import (
	"proteus/internal/model"
)

// Regime labels. Classification order is fixed: frozen wins over complex,
// complex over ordered, ordered over chaotic, transitional is the rest.
const (
	RegimeFrozen       = "frozen"
	RegimeComplex      = "complex"
	RegimeOrdered      = "ordered"
	RegimeChaotic      = "chaotic"
	RegimeTransitional = "transitional"
)

// band is a target interval expressed as center ± width.
type band struct {
	center float64
	width  float64
}

func (b band) contains(v float64) bool {
	return v >= b.center-b.width && v <= b.center+b.width
}

// score is the banded closeness of v to the target, clamped to [0,1].
func (b band) score(v float64) float64 {
	d := v - b.center
	if d < 0 {
		d = -d
	}
	s := 1 - d/b.width
	if s < 0 {
		return 0
	}
	return s
}

// The target bands for the "complex" regime and the run score. Frozen
// constants: changing them re-scores every stored run.
var (
	entropyBand   = band{center: 0.6, width: 0.35}
	changeBand    = band{center: 0.2, width: 0.2}
	autocorrBand  = band{center: 0.6, width: 0.3}
	diversityBand = band{center: 0.4, width: 0.3}
)

// RegimeFor labels a window from its raw statistics.
func RegimeFor(raw RawStats) string {
	switch {
	case raw.ChangeRate < 0.02:
		return RegimeFrozen
	case entropyBand.contains(raw.Entropy) &&
		changeBand.contains(raw.ChangeRate) &&
		autocorrBand.contains(raw.Autocorr) &&
		diversityBand.contains(raw.Diversity):
		return RegimeComplex
	case raw.Entropy < 0.25:
		return RegimeOrdered
	case raw.Entropy > 0.95 || raw.ChangeRate > 0.5:
		return RegimeChaotic
	default:
		return RegimeTransitional
	}
}

// WindowScore is the mean banded closeness of the four raw statistics.
func WindowScore(raw RawStats) float64 {
	return (entropyBand.score(raw.Entropy) +
		changeBand.score(raw.ChangeRate) +
		autocorrBand.score(raw.Autocorr) +
		diversityBand.score(raw.Diversity)) / 4
}

// Score reduces a run's windows to one figure in [0,1]; a run with no
// windows scores 0.
func Score(windows []Window) float64 {
	if len(windows) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range windows {
		total += WindowScore(w.Raw)
	}
	return total / float64(len(windows))
}

// Summarize counts windows per regime label.
func Summarize(windows []Window) map[string]int {
	if len(windows) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, w := range windows {
		out[w.Regime]++
	}
	return out
}

// ToRecords converts windows to their serializable form.
func ToRecords(windows []Window) []model.MetricsWindowRecord {
	out := make([]model.MetricsWindowRecord, 0, len(windows))
	for _, w := range windows {
		out = append(out, model.MetricsWindowRecord{
			WStart:      w.WStart,
			WEnd:        w.WEnd,
			Pressure:    w.Pressure,
			Selectivity: w.Selectivity,
			Structure:   w.Structure,
			Activity:    w.Activity,
			Regime:      w.Regime,
		})
	}
	return out
}
