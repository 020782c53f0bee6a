package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"proteus/internal/stats"
	"proteus/internal/wiring"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func TestRunCommandWritesArtifactsAndIndex(t *testing.T) {
	chdirTemp(t)

	args := []string{
		"run",
		"--run-id", "cli-run",
		"--length", "8",
		"--gens", "8",
		"--seed", "7",
		"--width", "4",
		"--stride", "4",
		"--samples", "15",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	for _, file := range []string{"config.json", "run_record.json", "metrics_windows.csv", "exotype_distribution.json"} {
		path := filepath.Join("runs", "run_cli-run", file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}

	entries, err := stats.ListRunIndex("runs")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "cli-run" {
		t.Fatalf("unexpected run index: %+v", entries)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "run_id=cli-run") {
		t.Fatalf("runs output missing run id: %q", out)
	}
	if strings.Contains(out, "families=") {
		t.Fatalf("runs output has families without the flag: %q", out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--families"})
	})
	if err != nil {
		t.Fatalf("runs --families command: %v", err)
	}
	if !strings.Contains(out, " families=") || strings.Contains(out, "families=n/a") {
		t.Fatalf("runs --families missing sampled family count: %q", out)
	}

	if err := run(context.Background(), []string{"runs", "--limit", "0"}); err == nil {
		t.Fatal("expected limit validation error")
	}
}

func TestRunCommandProfileWithFlagOverride(t *testing.T) {
	workdir := chdirTemp(t)

	profilePath := filepath.Join(workdir, "profile.yaml")
	profile := strings.Join([]string{
		"run_id: profile-run",
		"wiring: waiting-swap",
		"genotype_length: 8",
		"generations: 6",
		"seed: 3",
		"metrics_width: 4",
		"metrics_stride: 3",
	}, "\n") + "\n"
	if err := os.WriteFile(profilePath, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	args := []string{"run", "--profile", profilePath, "--gens", "10"}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	cfg, ok, err := stats.ReadRunConfig("runs", "profile-run")
	if err != nil {
		t.Fatalf("read run config: %v", err)
	}
	if !ok {
		t.Fatal("expected config artifact for profile run")
	}
	if cfg.Generations != 10 {
		t.Fatalf("expected flag override gens=10, got %d", cfg.Generations)
	}
	if cfg.Wiring.ID != "waiting-swap" {
		t.Fatalf("expected profile wiring kept, got %s", cfg.Wiring.ID)
	}
	if cfg.GenotypeLength != 8 || cfg.Seed != 3 {
		t.Fatalf("expected profile fields kept, got length=%d seed=%d", cfg.GenotypeLength, cfg.Seed)
	}
}

func TestRunCommandInlineWiringFile(t *testing.T) {
	workdir := chdirTemp(t)

	wiringPath := filepath.Join(workdir, "custom.yaml")
	doc := strings.Join([]string{
		"id: custom-gate",
		"hexagram_id: 11",
		"hexagram_name: Peace",
		"mix_mode: majority",
		"match_threshold: 0.5",
		"update_probability: 0.9",
	}, "\n") + "\n"
	if err := os.WriteFile(wiringPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write wiring artifact: %v", err)
	}

	args := []string{
		"run",
		"--run-id", "wired-run",
		"--wiring-file", wiringPath,
		"--length", "8",
		"--gens", "6",
		"--width", "4",
		"--stride", "3",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	cfg, ok, err := stats.ReadRunConfig("runs", "wired-run")
	if err != nil {
		t.Fatalf("read run config: %v", err)
	}
	if !ok {
		t.Fatal("expected config artifact")
	}
	if cfg.Wiring.ID != "custom-gate" || cfg.Wiring.HexagramID != 11 {
		t.Fatalf("expected inline wiring echoed in config, got %+v", cfg.Wiring)
	}
}

func TestSweepCommandWritesReportArtifacts(t *testing.T) {
	chdirTemp(t)

	args := []string{
		"sweep",
		"--sweep-id", "cli-sweep",
		"--wirings", "creative-majority",
		"--seeds", "2",
		"--workers", "2",
		"--length", "8",
		"--gens", "6",
		"--width", "4",
		"--stride", "3",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("sweep command: %v", err)
	}

	exp, ok, err := stats.ReadSweepExperiment("runs", "cli-sweep")
	if err != nil {
		t.Fatalf("read sweep experiment: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted sweep experiment")
	}
	if exp.TotalRuns != 2 || len(exp.RunIDs) != 2 {
		t.Fatalf("expected 2 sweep runs, got total=%d ids=%d", exp.TotalRuns, len(exp.RunIDs))
	}
	for _, runID := range exp.RunIDs {
		path := filepath.Join("runs", "run_"+runID, "run_record.json")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected sweep run artifact %s: %v", path, err)
		}
	}

	sweepDir := filepath.Join("runs", "sweeps", "cli-sweep")
	for _, file := range []string{
		"sweep.json",
		"report_Sweep.json",
		"report_Wirings.json",
		"report_Scores.json",
		"report_Report.json",
		"graph_creative_majority_report_Graphs",
	} {
		path := filepath.Join(sweepDir, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected sweep artifact %s: %v", path, err)
		}
	}
}

func TestExportCommandCopiesArtifactsAndEvents(t *testing.T) {
	chdirTemp(t)

	runArgs := []string{"run", "--run-id", "exp-run", "--length", "8", "--gens", "8", "--width", "4", "--stride", "4"}
	if err := run(context.Background(), runArgs); err != nil {
		t.Fatalf("run command: %v", err)
	}

	if err := run(context.Background(), []string{"export", "--latest", "--events"}); err != nil {
		t.Fatalf("export command: %v", err)
	}
	for _, file := range []string{"config.json", "run_record.json", "metrics_windows.csv", "run_events.jsonl"} {
		path := filepath.Join("exports", "run_exp-run", file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected exported file %s: %v", path, err)
		}
	}

	err := run(context.Background(), []string{"export", "--run-id", "exp-run", "--latest"})
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected selector exclusion error, got %v", err)
	}
	err = run(context.Background(), []string{"export"})
	if err == nil || !strings.Contains(err.Error(), "requires --run-id or --latest") {
		t.Fatalf("expected selector required error, got %v", err)
	}
}

func TestEventsCommandListsChanges(t *testing.T) {
	chdirTemp(t)

	runArgs := []string{"run", "--run-id", "ev-run", "--length", "8", "--gens", "8", "--width", "4", "--stride", "4"}
	if err := run(context.Background(), runArgs); err != nil {
		t.Fatalf("run command: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"events", "--run-id", "ev-run"})
	})
	if err != nil {
		t.Fatalf("events command: %v", err)
	}
	if !strings.Contains(out, "events run_id=ev-run") {
		t.Fatalf("events output missing header: %q", out)
	}

	if err := run(context.Background(), []string{"events", "--run-id", "missing-run"}); err == nil {
		t.Fatal("expected missing run error")
	}
	if err := run(context.Background(), []string{"events"}); err == nil {
		t.Fatal("expected selector required error")
	}
	if err := run(context.Background(), []string{"events", "--run-id", "ev-run", "--latest"}); err == nil {
		t.Fatal("expected selector exclusion error")
	}
	if err := run(context.Background(), []string{"events", "--run-id", "ev-run", "--limit", "-1"}); err == nil {
		t.Fatal("expected limit validation error")
	}
}

func TestWiringsCommandSavesArtifacts(t *testing.T) {
	workdir := chdirTemp(t)

	outDir := filepath.Join(workdir, "catalog")
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"wirings", "--out", outDir})
	})
	if err != nil {
		t.Fatalf("wirings command: %v", err)
	}
	if !strings.Contains(out, "wiring=creative-majority") {
		t.Fatalf("wirings output missing catalog entry: %q", out)
	}

	wantIDs := []string{"creative-majority", "difficulty-xor", "receptive-scramble", "treading-rotate", "waiting-swap"}
	for _, id := range wantIDs {
		path := filepath.Join(outDir, id+".yaml")
		d, err := wiring.LoadDiagram(path)
		if err != nil {
			t.Fatalf("load saved wiring %s: %v", path, err)
		}
		if d.ID != id {
			t.Fatalf("saved wiring id mismatch: got %s want %s", d.ID, id)
		}
	}
}

func TestTableCommandPrintsFamilies(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"table", "--limit", "3"})
	})
	if err != nil {
		t.Fatalf("table command: %v", err)
	}
	if !strings.Contains(out, "table version=v1 families=64") {
		t.Fatalf("table output missing header: %q", out)
	}
	if !strings.Contains(out, `bucket=0 hexagram=1 name="The Creative"`) {
		t.Fatalf("table output missing first family: %q", out)
	}
	if strings.Contains(out, "bucket=3 ") {
		t.Fatalf("expected limit to cut listing at 3 families: %q", out)
	}
}

func TestVersionAndUsageErrors(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"version"})
	})
	if err != nil {
		t.Fatalf("version command: %v", err)
	}
	if !strings.Contains(out, "proteusctl version=dev") {
		t.Fatalf("unexpected version output: %q", out)
	}

	err = run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected missing command error, got %v", err)
	}
	err = run(context.Background(), []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if !strings.Contains(err.Error(), "usage: proteusctl") {
		t.Fatalf("expected usage line in error, got %v", err)
	}
}

func TestStoreBackedSelectorValidation(t *testing.T) {
	if err := run(context.Background(), []string{"replay"}); err == nil {
		t.Fatal("expected replay selector error")
	}
	if err := run(context.Background(), []string{"replay", "--run-id", "x", "--latest"}); err == nil {
		t.Fatal("expected replay exclusion error")
	}
	if err := run(context.Background(), []string{"metrics"}); err == nil {
		t.Fatal("expected metrics selector error")
	}
	if err := run(context.Background(), []string{"sample"}); err == nil {
		t.Fatal("expected sample selector error")
	}
	err := run(context.Background(), []string{"replay", "--run-id", "x", "--ticks", "1,bogus"})
	if err == nil || !strings.Contains(err.Error(), "invalid tick") {
		t.Fatalf("expected tick parse error, got %v", err)
	}
}

func TestSplitListAndParseTicks(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Fatalf("expected nil for empty list, got %v", got)
	}
	got := splitList(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected split: %v", got)
	}

	ticks, err := parseTickList("0, 5,10")
	if err != nil {
		t.Fatalf("parse ticks: %v", err)
	}
	if len(ticks) != 3 || ticks[0] != 0 || ticks[1] != 5 || ticks[2] != 10 {
		t.Fatalf("unexpected ticks: %v", ticks)
	}
	if _, err := parseTickList("x"); err == nil {
		t.Fatal("expected tick parse error")
	}
}
