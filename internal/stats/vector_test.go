package stats

import (
	"reflect"
	"testing"

	"proteus/internal/model"
)

func TestAxesVectorComparisons(t *testing.T) {
	base := []float64{0.5, 0.5, 0.5, 0.5}

	if !AxesVectorGT([]float64{0.6, 0.5, 0.5, 0.5}, base) {
		t.Fatal("expected dominance when one axis improves and none regress")
	}
	if AxesVectorGT([]float64{0.6, 0.4, 0.6, 0.6}, base) {
		t.Fatal("expected no dominance when any axis regresses")
	}
	if AxesVectorGT(base, base) {
		t.Fatal("expected no dominance for equal vectors")
	}
	if AxesVectorGT(base, nil) {
		t.Fatal("expected no dominance against nil")
	}
	if AxesVectorGT([]float64{0.5, 0.5}, base) {
		t.Fatal("expected no dominance for mismatched lengths")
	}

	if !AxesVectorLT([]float64{0.4, 0.5, 0.5, 0.5}, base) {
		t.Fatal("expected strict inferiority")
	}
	if AxesVectorLT(base, base) {
		t.Fatal("expected no inferiority for equal vectors")
	}

	if !AxesVectorEQ(base, []float64{0.5, 0.5, 0.5, 0.5}) {
		t.Fatal("expected equality")
	}
	if AxesVectorEQ(base, []float64{0.5, 0.5, 0.5, 0.25}) {
		t.Fatal("expected inequality")
	}
}

func TestMeanAxesAveragesWindows(t *testing.T) {
	windows := []model.MetricsWindowRecord{
		{Pressure: 0.25, Selectivity: 0.5, Structure: 0.75, Activity: 1},
		{Pressure: 0.75, Selectivity: 0.5, Structure: 0.25, Activity: 0.5},
	}

	got := MeanAxes(windows)
	want := []float64{0.5, 0.5, 0.5, 0.75}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected mean axes: got=%v want=%v", got, want)
	}

	if MeanAxes(nil) != nil {
		t.Fatal("expected nil for empty windows")
	}
}

func TestParetoFrontKeepsNonDominatedRuns(t *testing.T) {
	vectors := map[string][]float64{
		"run-low":   {0.5, 0.5, 0.5, 0.5},
		"run-high":  {0.6, 0.6, 0.6, 0.6},
		"run-spiky": {0.7, 0.1, 0.7, 0.7},
	}

	front := ParetoFront(vectors)
	want := []string{"run-high", "run-spiky"}
	if !reflect.DeepEqual(front, want) {
		t.Fatalf("unexpected front: got=%v want=%v", front, want)
	}
}

func TestBuildSweepParetoSkipsRunsWithoutWindows(t *testing.T) {
	baseDir := t.TempDir()

	writeSweepRun(t, baseDir, "run-dominated", "wiring-a", 1, 0.25, []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.5, Selectivity: 0.5, Structure: 0.5, Activity: 0.5, Regime: "ordered"},
	})
	writeSweepRun(t, baseDir, "run-winner", "wiring-a", 2, 0.75, []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.75, Selectivity: 0.75, Structure: 0.75, Activity: 0.75, Regime: "complex"},
	})
	writeSweepRun(t, baseDir, "run-empty", "wiring-b", 3, 0.5, nil)

	exp := SweepExperiment{
		ID:     "sweep-pareto",
		RunIDs: []string{"run-dominated", "run-winner", "run-empty", "run-not-on-disk"},
	}

	front, err := BuildSweepPareto(baseDir, exp)
	if err != nil {
		t.Fatalf("build pareto: %v", err)
	}
	want := []string{"run-winner"}
	if !reflect.DeepEqual(front, want) {
		t.Fatalf("unexpected front: got=%v want=%v", front, want)
	}
}
