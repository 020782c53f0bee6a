package metrics

import (
	"math"
	"testing"
)

// These pins freeze the regime cut points and the score formula. Stored
// runs are only comparable while they hold.
func TestRegimeLabelsCutPoints(t *testing.T) {
	cases := []struct {
		name string
		raw  RawStats
		want string
	}{
		{"static tape", RawStats{ChangeRate: 0, Entropy: 0.9, Diversity: 1}, RegimeFrozen},
		{"near static tape", RawStats{ChangeRate: 0.019, Entropy: 0.3, Autocorr: 0.5, Diversity: 0.3}, RegimeFrozen},
		{"band centers", RawStats{ChangeRate: 0.2, Entropy: 0.6, Autocorr: 0.6, Diversity: 0.4}, RegimeComplex},
		{"band edges", RawStats{ChangeRate: 0.4, Entropy: 0.25, Autocorr: 0.3, Diversity: 0.7}, RegimeComplex},
		{"low entropy lattice", RawStats{ChangeRate: 0.1, Entropy: 0.1, Autocorr: 0, Diversity: 0.5}, RegimeOrdered},
		{"entropy saturated", RawStats{ChangeRate: 0.3, Entropy: 0.97, Autocorr: 0, Diversity: 1}, RegimeChaotic},
		{"churning tape", RawStats{ChangeRate: 0.55, Entropy: 0.5, Autocorr: 0, Diversity: 0.9}, RegimeChaotic},
		{"in between", RawStats{ChangeRate: 0.45, Entropy: 0.5, Autocorr: 0, Diversity: 0.9}, RegimeTransitional},
	}
	for _, tc := range cases {
		if got := RegimeFor(tc.raw); got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestFrozenWinsOverComplexWhenBothApply(t *testing.T) {
	// All four statistics sit inside the complex bands, but the tape is
	// essentially static: frozen must win.
	raw := RawStats{ChangeRate: 0.01, Entropy: 0.6, Autocorr: 0.6, Diversity: 0.4}
	if got := RegimeFor(raw); got != RegimeFrozen {
		t.Fatalf("priority: got=%s want=%s", got, RegimeFrozen)
	}
}

func TestWindowScoreGoldenValues(t *testing.T) {
	// Band centers score a perfect 1.
	centers := RawStats{ChangeRate: 0.2, Entropy: 0.6, Autocorr: 0.6, Diversity: 0.4}
	if got := WindowScore(centers); got != 1 {
		t.Fatalf("score at band centers: got=%f want=1", got)
	}

	// Only the change band contributes here: entropy, autocorr and
	// diversity all clamp to zero, change scores 1-0.05/0.2.
	partial := RawStats{ChangeRate: 0.25, Entropy: 0.96, Autocorr: 0, Diversity: 1}
	if got := WindowScore(partial); math.Abs(got-0.1875) > 1e-12 {
		t.Fatalf("partial score: got=%f want=0.1875", got)
	}

	// Everything far out of band scores 0.
	far := RawStats{ChangeRate: 1, Entropy: 0, Autocorr: -1, Diversity: 1}
	if got := WindowScore(far); got != 0 {
		t.Fatalf("far out of band: got=%f want=0", got)
	}
}

func TestScoreAveragesWindowsAndHandlesEmpty(t *testing.T) {
	if got := Score(nil); got != 0 {
		t.Fatalf("empty windows: got=%f want=0", got)
	}
	windows := []Window{
		{Raw: RawStats{ChangeRate: 0.2, Entropy: 0.6, Autocorr: 0.6, Diversity: 0.4}},
		{Raw: RawStats{ChangeRate: 1, Entropy: 0, Autocorr: -1, Diversity: 1}},
	}
	if got := Score(windows); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("mean score: got=%f want=0.5", got)
	}
}

func TestSummarizeCountsRegimes(t *testing.T) {
	windows := []Window{
		{Regime: RegimeFrozen},
		{Regime: RegimeChaotic},
		{Regime: RegimeFrozen},
	}
	got := Summarize(windows)
	if got[RegimeFrozen] != 2 || got[RegimeChaotic] != 1 || len(got) != 2 {
		t.Fatalf("summary: got=%v", got)
	}
	if Summarize(nil) != nil {
		t.Fatalf("empty summary should be nil")
	}
}

func TestWindowRecordsMirrorAxes(t *testing.T) {
	w := Window{
		WStart:      5,
		WEnd:        15,
		Pressure:    0.5,
		Selectivity: 0.25,
		Structure:   0.75,
		Activity:    0.3,
		Regime:      RegimeTransitional,
	}
	recs := ToRecords([]Window{w})
	if len(recs) != 1 {
		t.Fatalf("record count: got=%d want=1", len(recs))
	}
	r := recs[0]
	if r.WStart != 5 || r.WEnd != 15 || r.Pressure != 0.5 || r.Selectivity != 0.25 ||
		r.Structure != 0.75 || r.Activity != 0.3 || r.Regime != RegimeTransitional {
		t.Fatalf("record: got=%+v", r)
	}
}
