package stats

import (
	"os"
	"strings"
	"testing"

	"proteus/internal/model"
)

func TestBuildSweepGraphsGroupsByWiring(t *testing.T) {
	baseDir := t.TempDir()

	windowsA1 := []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.25, Selectivity: 0.5, Structure: 0.5, Activity: 0.25, Regime: "ordered"},
		{WStart: 5, WEnd: 14, Pressure: 0.25, Selectivity: 0.5, Structure: 0.5, Activity: 0.25, Regime: "ordered"},
	}
	windowsA2 := []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.75, Selectivity: 0.5, Structure: 0.5, Activity: 0.75, Regime: "chaotic"},
		{WStart: 5, WEnd: 14, Pressure: 0.75, Selectivity: 0.5, Structure: 0.5, Activity: 0.75, Regime: "chaotic"},
	}
	windowsB := []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.5, Selectivity: 0.5, Structure: 0.5, Activity: 0.5, Regime: "complex"},
	}

	writeSweepRun(t, baseDir, "run-a1", "wiring-a", 1, 0.25, windowsA1)
	writeSweepRun(t, baseDir, "run-a2", "wiring-a", 2, 0.75, windowsA2)
	writeSweepRun(t, baseDir, "run-b1", "wiring-b", 1, 0.5, windowsB)

	exp := SweepExperiment{ID: "sweep-graphs", RunIDs: []string{"run-a1", "run-a2", "run-b1"}}
	graphs, err := BuildSweepGraphs(baseDir, exp)
	if err != nil {
		t.Fatalf("build graphs: %v", err)
	}
	if len(graphs) != 2 {
		t.Fatalf("expected 2 graphs, got %d", len(graphs))
	}
	if graphs[0].WiringID != "wiring-a" || graphs[1].WiringID != "wiring-b" {
		t.Fatalf("unexpected graph order: %s, %s", graphs[0].WiringID, graphs[1].WiringID)
	}

	a := graphs[0]
	if len(a.WindowIndex) != 2 || a.WindowIndex[0] != 0 || a.WindowIndex[1] != 5 {
		t.Fatalf("unexpected window index: %v", a.WindowIndex)
	}
	if a.AvgPressure[0] != 0.5 || a.PressureStd[0] != 0.25 {
		t.Fatalf("unexpected pressure aggregate: avg=%v std=%v", a.AvgPressure[0], a.PressureStd[0])
	}
	if a.AvgActivity[1] != 0.5 || a.MaxActivity[1] != 0.75 || a.MinActivity[1] != 0.25 {
		t.Fatalf("unexpected activity aggregate: %+v", a)
	}
	if a.RegimeDiversity[0] != 2 {
		t.Fatalf("expected 2 distinct regimes, got %v", a.RegimeDiversity[0])
	}

	b := graphs[1]
	if len(b.WindowIndex) != 1 || b.AvgPressure[0] != 0.5 || b.PressureStd[0] != 0 {
		t.Fatalf("unexpected single-run graph: %+v", b)
	}
	if b.RegimeDiversity[0] != 1 {
		t.Fatalf("expected 1 regime, got %v", b.RegimeDiversity[0])
	}
}

func TestBuildSweepGraphsMissingConfig(t *testing.T) {
	exp := SweepExperiment{ID: "sweep-missing", RunIDs: []string{"run-ghost"}}
	if _, err := BuildSweepGraphs(t.TempDir(), exp); err == nil {
		t.Fatal("expected error for missing run config")
	}
}

func TestBuildSweepGraphsEmptyExperiment(t *testing.T) {
	graphs, err := BuildSweepGraphs(t.TempDir(), SweepExperiment{ID: "sweep-empty"})
	if err != nil {
		t.Fatalf("build graphs: %v", err)
	}
	if len(graphs) != 0 {
		t.Fatalf("expected no graphs, got %d", len(graphs))
	}
}

func TestBuildSweepGraphFromWindowsSingleRun(t *testing.T) {
	windows := []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.5, Selectivity: 0.25, Structure: 0.75, Activity: 0.5, Regime: "transitional"},
		{WStart: 5, WEnd: 14, Pressure: 0.625, Selectivity: 0.25, Structure: 0.75, Activity: 0.25, Regime: "ordered"},
	}

	graph := BuildSweepGraphFromWindows(windows, "creative-majority")
	if graph.WiringID != "creative-majority" {
		t.Fatalf("unexpected wiring id: %s", graph.WiringID)
	}
	if len(graph.WindowIndex) != 2 || graph.WindowIndex[1] != 5 {
		t.Fatalf("unexpected window index: %v", graph.WindowIndex)
	}
	if graph.AvgPressure[1] != 0.625 || graph.PressureStd[1] != 0 {
		t.Fatalf("unexpected pressure: %+v", graph)
	}

	blank := BuildSweepGraphFromWindows(windows, "  ")
	if blank.WiringID != "run" {
		t.Fatalf("expected fallback wiring id, got %s", blank.WiringID)
	}
}

func TestWriteSweepGraphsToDirWritesGnuplotSections(t *testing.T) {
	outputDir := t.TempDir()

	graph := BuildSweepGraphFromWindows([]model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.5, Selectivity: 0.25, Structure: 0.75, Activity: 0.5, Regime: "complex"},
	}, "creative-majority")

	paths, err := WriteSweepGraphsToDir(outputDir, "", []SweepGraph{graph})
	if err != nil {
		t.Fatalf("write graphs: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 graph file, got %d", len(paths))
	}
	if !strings.HasSuffix(paths[0], "graph_creative_majority_report_Graphs") {
		t.Fatalf("unexpected graph path: %s", paths[0])
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read graph file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "#Avg Pressure Vs Window Start, Wiring:creative-majority\n") {
		t.Fatalf("unexpected graph header: %q", content[:60])
	}
	if !strings.Contains(content, "0 0.5 0\n") {
		t.Fatalf("expected pressure data row in graph file:\n%s", content)
	}
	if !strings.Contains(content, "#Regime Diversity Vs Window Start, Wiring:creative-majority\n") {
		t.Fatalf("expected regime diversity section in graph file:\n%s", content)
	}
}

func TestSanitizeGraphToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"creative-majority", "creative_majority"},
		{"wiring a/b", "wiring_a_b"},
		{"---", "unknown"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := sanitizeGraphToken(tc.in); got != tc.want {
			t.Fatalf("sanitize %q: got=%s want=%s", tc.in, got, tc.want)
		}
	}
}
