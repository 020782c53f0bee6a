package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"proteus/internal/model"
)

type SweepGraph struct {
	WiringID        string    `json:"wiring_id"`
	WindowIndex     []int     `json:"window_index"`
	AvgPressure     []float64 `json:"avg_pressure"`
	PressureStd     []float64 `json:"pressure_std"`
	AvgSelectivity  []float64 `json:"avg_selectivity"`
	SelectivityStd  []float64 `json:"selectivity_std"`
	AvgStructure    []float64 `json:"avg_structure"`
	StructureStd    []float64 `json:"structure_std"`
	AvgActivity     []float64 `json:"avg_activity"`
	ActivityStd     []float64 `json:"activity_std"`
	MaxActivity     []float64 `json:"max_activity"`
	MinActivity     []float64 `json:"min_activity"`
	RegimeDiversity []float64 `json:"regime_diversity"`
}

type sweepRunGraphData struct {
	windows []model.MetricsWindowRecord
}

func BuildSweepGraphs(baseDir string, exp SweepExperiment) ([]SweepGraph, error) {
	if len(exp.RunIDs) == 0 {
		return []SweepGraph{}, nil
	}
	runsByWiring := make(map[string][]sweepRunGraphData)
	for _, runID := range exp.RunIDs {
		cfg, ok, err := ReadRunConfig(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run config not found for run id: %s", runID)
		}
		windows, ok, err := ReadMetricsCSV(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run metrics not found for run id: %s", runID)
		}
		wiringID := strings.TrimSpace(cfg.Wiring.ID)
		if wiringID == "" {
			wiringID = "unknown"
		}
		runsByWiring[wiringID] = append(runsByWiring[wiringID], sweepRunGraphData{windows: windows})
	}

	wiringIDs := make([]string, 0, len(runsByWiring))
	for wiringID := range runsByWiring {
		wiringIDs = append(wiringIDs, wiringID)
	}
	sort.Strings(wiringIDs)

	graphs := make([]SweepGraph, 0, len(wiringIDs))
	for _, wiringID := range wiringIDs {
		graphs = append(graphs, buildGraphForWiring(wiringID, runsByWiring[wiringID]))
	}
	return graphs, nil
}

// BuildSweepGraphFromWindows builds a single-run graph straight from
// a run's metrics windows.
func BuildSweepGraphFromWindows(windows []model.MetricsWindowRecord, wiringID string) SweepGraph {
	if strings.TrimSpace(wiringID) == "" {
		wiringID = "run"
	}
	return buildGraphForWiring(wiringID, []sweepRunGraphData{{windows: windows}})
}

func WriteSweepGraphs(baseDir, sweepID, graphPostfix string, graphs []SweepGraph) ([]string, error) {
	if sweepID == "" {
		return nil, fmt.Errorf("graph sweep id is required")
	}
	reportDir := filepath.Join(baseDir, sweepsDir, sweepID)
	return WriteSweepGraphsToDir(reportDir, graphPostfix, graphs)
}

func WriteSweepGraphsToDir(outputDir, graphPostfix string, graphs []SweepGraph) ([]string, error) {
	if graphPostfix == "" {
		graphPostfix = "report_Graphs"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(graphs))
	for _, graph := range graphs {
		name := "graph_" + sanitizeGraphToken(graph.WiringID) + "_" + graphPostfix
		path := filepath.Join(outputDir, name)
		if err := writeSweepGraphFile(path, graph); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func buildGraphForWiring(wiringID string, runs []sweepRunGraphData) SweepGraph {
	graph := SweepGraph{
		WiringID: wiringID,
	}
	maxWindows := 0
	for _, run := range runs {
		if len(run.windows) > maxWindows {
			maxWindows = len(run.windows)
		}
	}
	graph.WindowIndex = make([]int, 0, maxWindows)
	for slot := 0; slot < maxWindows; slot++ {
		windowStart := 0
		haveStart := false
		pressureVals := make([]float64, 0, len(runs))
		selectivityVals := make([]float64, 0, len(runs))
		structureVals := make([]float64, 0, len(runs))
		activityVals := make([]float64, 0, len(runs))
		regimes := make(map[string]struct{})

		for _, run := range runs {
			if slot >= len(run.windows) {
				continue
			}
			window := run.windows[slot]
			if !haveStart {
				windowStart = window.WStart
				haveStart = true
			}
			pressureVals = append(pressureVals, window.Pressure)
			selectivityVals = append(selectivityVals, window.Selectivity)
			structureVals = append(structureVals, window.Structure)
			activityVals = append(activityVals, window.Activity)
			if window.Regime != "" {
				regimes[window.Regime] = struct{}{}
			}
		}

		avgPressure, pressureStd := avgStd(pressureVals)
		avgSelectivity, selectivityStd := avgStd(selectivityVals)
		avgStructure, structureStd := avgStd(structureVals)
		avgActivity, activityStd := avgStd(activityVals)

		graph.WindowIndex = append(graph.WindowIndex, windowStart)
		graph.AvgPressure = append(graph.AvgPressure, avgPressure)
		graph.PressureStd = append(graph.PressureStd, pressureStd)
		graph.AvgSelectivity = append(graph.AvgSelectivity, avgSelectivity)
		graph.SelectivityStd = append(graph.SelectivityStd, selectivityStd)
		graph.AvgStructure = append(graph.AvgStructure, avgStructure)
		graph.StructureStd = append(graph.StructureStd, structureStd)
		graph.AvgActivity = append(graph.AvgActivity, avgActivity)
		graph.ActivityStd = append(graph.ActivityStd, activityStd)
		graph.MaxActivity = append(graph.MaxActivity, maxOrZero(activityVals))
		graph.MinActivity = append(graph.MinActivity, minOrZero(activityVals))
		graph.RegimeDiversity = append(graph.RegimeDiversity, float64(len(regimes)))
	}
	return graph
}

func writeSweepGraphFile(path string, graph SweepGraph) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "#Avg Pressure Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeriesWithStd(file, graph.WindowIndex, graph.AvgPressure, graph.PressureStd); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Avg Selectivity Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeriesWithStd(file, graph.WindowIndex, graph.AvgSelectivity, graph.SelectivityStd); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Avg Structure Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeriesWithStd(file, graph.WindowIndex, graph.AvgStructure, graph.StructureStd); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Avg Activity Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeriesWithStd(file, graph.WindowIndex, graph.AvgActivity, graph.ActivityStd); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Max Activity Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeries(file, graph.WindowIndex, graph.MaxActivity); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Min Activity Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	if err := writeSeries(file, graph.WindowIndex, graph.MinActivity); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Regime Diversity Vs Window Start, Wiring:%s\n", graph.WiringID); err != nil {
		return err
	}
	return writeSeries(file, graph.WindowIndex, graph.RegimeDiversity)
}

func writeSeriesWithStd(file *os.File, index []int, values, std []float64) error {
	length := minInt(len(index), minInt(len(values), len(std)))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(file, "%d %g %g\n", index[i], values[i], std[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(file *os.File, index []int, values []float64) error {
	length := minInt(len(index), len(values))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(file, "%d %g\n", index[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeGraphToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	token := strings.Trim(b.String(), "_")
	if token == "" {
		return "unknown"
	}
	return token
}

func avgStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	avg := sum / float64(len(values))
	diffSum := 0.0
	for _, value := range values {
		diff := avg - value
		diffSum += diff * diff
	}
	return avg, math.Sqrt(diffSum / float64(len(values)))
}

func maxFloat(values []float64) float64 {
	max := values[0]
	for _, value := range values[1:] {
		if value > max {
			max = value
		}
	}
	return max
}

func minFloat(values []float64) float64 {
	min := values[0]
	for _, value := range values[1:] {
		if value < min {
			min = value
		}
	}
	return min
}

func maxOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return maxFloat(values)
}

func minOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return minFloat(values)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
