package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"proteus/internal/model"
)

func recordFixture(runID string) model.RunRecord {
	return model.RunRecord{
		RunID:        runID,
		CreatedAtUTC: "2026-03-01T12:00:00Z",
		Config: model.RunConfig{
			AlphabetSymbols: "AB",
			GenotypeLength:  3,
			InitialGenotype: "AAA",
			Generations:     2,
			Seed:            7,
			Kernel:          "reference",
			Wiring: model.WiringRecord{
				ID:                "creative-majority",
				HexagramID:        1,
				HexagramName:      "The Creative",
				MixMode:           "majority",
				MatchThreshold:    0.5,
				UpdateProbability: 1,
			},
		},
		GenotypeHistory:  []string{"AAA", "ABA", "BBA"},
		PhenotypeHistory: []string{"000", "010", "110"},
		HexagramByTick:   []int{3, 7},
		FinalHash:        "0011223344556677",
		Score:            0.5,
	}
}

func windowsFixture() []model.MetricsWindowRecord {
	return []model.MetricsWindowRecord{
		{WStart: 0, WEnd: 9, Pressure: 0.5, Selectivity: 0.25, Structure: 0.4, Activity: 0.2, Regime: "transitional"},
		{WStart: 5, WEnd: 14, Pressure: 0.625, Selectivity: 0, Structure: 0.1, Activity: 0.55, Regime: "chaotic"},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	rec := recordFixture(runID)
	artifacts := RunArtifacts{
		Record:  rec,
		Windows: windowsFixture(),
		Distribution: &model.ExotypeDistribution{
			RunID:        runID,
			TableVersion: "v1",
			WindowWidth:  3,
			Samples:      10,
			Counts:       map[int]int{3: 6, 7: 4},
		},
	}

	dir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if filepath.Base(dir) != "run_"+runID {
		t.Fatalf("unexpected run dir name: %s", dir)
	}

	for _, file := range []string{"config.json", "run_record.json", "metrics_windows.csv", "exotype_distribution.json"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "run_record.json", "metrics_windows.csv", "exotype_distribution.json"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestExportSkipsMissingDistribution(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	rec := recordFixture("run-no-dist")
	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{Record: rec, Windows: windowsFixture()}); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, rec.RunID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportedDir, "exotype_distribution.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no exported distribution, got err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(exportedDir, "run_record.json")); err != nil {
		t.Fatalf("expected exported run record: %v", err)
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:          "run-1",
		WiringID:       "creative-majority",
		Kernel:         "reference",
		GenotypeLength: 16,
		Generations:    32,
		Seed:           1,
		Score:          0.80,
		CreatedAtUTC:   "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:          "run-2",
		WiringID:       "receptive-scramble",
		Kernel:         "indexed",
		GenotypeLength: 16,
		Generations:    32,
		Seed:           2,
		Score:          0.82,
		CreatedAtUTC:   "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:          "run-1",
		WiringID:       "creative-majority",
		Kernel:         "reference",
		GenotypeLength: 16,
		Generations:    32,
		Seed:           1,
		Score:          0.90,
		CreatedAtUTC:   "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].Score != 0.90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestIndexEntryFromRecordCopiesTheRunSummary(t *testing.T) {
	rec := recordFixture("run-entry")
	entry := IndexEntryFromRecord(rec)
	if entry.RunID != rec.RunID || entry.WiringID != "creative-majority" || entry.Kernel != "reference" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Seed != 7 || entry.Score != 0.5 || entry.FinalHash != rec.FinalHash {
		t.Fatalf("unexpected entry values: %+v", entry)
	}
	if entry.CreatedAtUTC != rec.CreatedAtUTC {
		t.Fatalf("unexpected created at: %s", entry.CreatedAtUTC)
	}
}

func TestRunLogAppendsOneRecordPerLine(t *testing.T) {
	baseDir := t.TempDir()

	if err := AppendRunLog(baseDir, recordFixture("run-log-1")); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunLog(baseDir, recordFixture("run-log-2")); err != nil {
		t.Fatalf("append second: %v", err)
	}

	records, err := ReadRunLog(baseDir)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RunID != "run-log-1" || records[1].RunID != "run-log-2" {
		t.Fatalf("unexpected record order: %s, %s", records[0].RunID, records[1].RunID)
	}

	raw, err := os.ReadFile(filepath.Join(baseDir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("read raw log: %v", err)
	}
	lines := bytes.Count(raw, []byte("\n"))
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestReadRunLogMissingFileIsEmpty(t *testing.T) {
	records, err := ReadRunLog(t.TempDir())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty log, got %d records", len(records))
	}
}

func TestMetricsCSVRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	runID := "run-csv"
	dir := filepath.Join(baseDir, "run_"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	windows := windowsFixture()
	if err := WriteMetricsCSV(dir, windows); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	loaded, ok, err := ReadMetricsCSV(baseDir, runID)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !ok {
		t.Fatal("expected metrics csv to exist")
	}
	if !reflect.DeepEqual(loaded, windows) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", loaded, windows)
	}
}

func TestReadMetricsCSVMissingFile(t *testing.T) {
	if _, ok, err := ReadMetricsCSV(t.TempDir(), "run-none"); err != nil || ok {
		t.Fatalf("expected missing csv; ok=%t err=%v", ok, err)
	}
}

func TestRunEventsDerivedFromHistoryDiffs(t *testing.T) {
	rec := recordFixture("run-events")

	events, err := RunEvents(rec)
	if err != nil {
		t.Fatalf("run events: %v", err)
	}

	want := []CellEvent{
		{T: 1, Cell: 1, Sigil: "B", Exotype: 3},
		{T: 2, Cell: 0, Sigil: "B", Exotype: 7},
	}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected events\nactual=%+v\nexpected=%+v", events, want)
	}
}

func TestRunEventsWithoutExotypeSelectionUseFamilyZero(t *testing.T) {
	rec := recordFixture("run-plain")
	rec.HexagramByTick = nil

	events, err := RunEvents(rec)
	if err != nil {
		t.Fatalf("run events: %v", err)
	}
	for _, event := range events {
		if event.Exotype != 0 {
			t.Fatalf("expected family 0 for all events, got %+v", event)
		}
	}
}

func TestRunEventsRejectsDriftingHistory(t *testing.T) {
	rec := recordFixture("run-drift")
	rec.GenotypeHistory = []string{"AAA", "AAAA"}

	if _, err := RunEvents(rec); err == nil {
		t.Fatal("expected error for drifting history")
	}
}

func TestWriteRunEventsEmitsOneJSONObjectPerLine(t *testing.T) {
	events := []CellEvent{
		{T: 1, Cell: 1, Sigil: "B", Exotype: 3},
		{T: 2, Cell: 0, Sigil: "B", Exotype: 7},
	}

	var buf bytes.Buffer
	if err := WriteRunEvents(&buf, events); err != nil {
		t.Fatalf("write events: %v", err)
	}

	want := `{"t":1,"cell":1,"sigil":"B","exotype":3}` + "\n" + `{"t":2,"cell":0,"sigil":"B","exotype":7}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected output\nactual=%q\nexpected=%q", buf.String(), want)
	}
}

func TestReadRunConfigAndRecordArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	rec := recordFixture("run-read")

	if _, ok, err := ReadRunConfig(baseDir, rec.RunID); err != nil || ok {
		t.Fatalf("expected missing config; ok=%t err=%v", ok, err)
	}

	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{Record: rec}); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadRunConfig(baseDir, rec.RunID)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !ok {
		t.Fatal("expected config to exist")
	}
	if cfg.Wiring.ID != rec.Config.Wiring.ID || cfg.Seed != rec.Config.Seed {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	loaded, ok, err := ReadRunRecordArtifact(baseDir, rec.RunID)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}
	if !reflect.DeepEqual(loaded, rec) {
		t.Fatalf("unexpected record\nactual=%+v\nexpected=%+v", loaded, rec)
	}
}
