package stats

import (
	"sort"

	"proteus/internal/model"
)

// AxesVectorGT reports whether v1 dominates v2: no axis is worse and
// the total difference is positive.
func AxesVectorGT(v1, v2 []float64) bool {
	if v2 == nil || len(v1) != len(v2) {
		return false
	}
	acc := 0.0
	for i := range v1 {
		if v1[i] < v2[i] {
			return false
		}
		acc += v1[i] - v2[i]
	}
	return acc > 0
}

func AxesVectorLT(v1, v2 []float64) bool {
	if v2 == nil || len(v1) != len(v2) {
		return false
	}
	acc := 0.0
	for i := range v1 {
		if v1[i] > v2[i] {
			return false
		}
		acc += v1[i] - v2[i]
	}
	return acc < 0
}

func AxesVectorEQ(v1, v2 []float64) bool {
	if v2 == nil || len(v1) != len(v2) {
		return false
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			return false
		}
	}
	return true
}

// MeanAxes averages the four macro axes over a run's windows, in the
// order pressure, selectivity, structure, activity. Nil when the run
// produced no windows.
func MeanAxes(windows []model.MetricsWindowRecord) []float64 {
	if len(windows) == 0 {
		return nil
	}
	sums := make([]float64, 4)
	for _, window := range windows {
		sums[0] += window.Pressure
		sums[1] += window.Selectivity
		sums[2] += window.Structure
		sums[3] += window.Activity
	}
	for i := range sums {
		sums[i] /= float64(len(windows))
	}
	return sums
}

// ParetoFront returns the ids whose axes vector is not dominated by
// any other entry, sorted for stable output.
func ParetoFront(vectors map[string][]float64) []string {
	front := make([]string, 0, len(vectors))
	for id, vector := range vectors {
		dominated := false
		for other, otherVector := range vectors {
			if other == id {
				continue
			}
			if AxesVectorGT(otherVector, vector) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, id)
		}
	}
	sort.Strings(front)
	return front
}

// BuildSweepPareto collects every sweep run's mean axes vector and
// returns the non-dominated run ids. Runs without stored metrics are
// skipped.
func BuildSweepPareto(baseDir string, exp SweepExperiment) ([]string, error) {
	vectors := make(map[string][]float64, len(exp.RunIDs))
	for _, runID := range exp.RunIDs {
		windows, ok, err := ReadMetricsCSV(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		vector := MeanAxes(windows)
		if vector == nil {
			continue
		}
		vectors[runID] = vector
	}
	return ParetoFront(vectors), nil
}
