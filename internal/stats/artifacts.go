package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"proteus/internal/model"
)

const (
	runIndexFile = "run_index.json"
	runLogFile   = "runs.jsonl"
)

// RunArtifacts bundles everything a completed run leaves on disk: the
// full record, the windowed metrics, and (when exotype selection ran)
// the family distribution.
type RunArtifacts struct {
	Record       model.RunRecord             `json:"record"`
	Windows      []model.MetricsWindowRecord `json:"windows,omitempty"`
	Distribution *model.ExotypeDistribution  `json:"distribution,omitempty"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	WiringID       string  `json:"wiring_id"`
	Kernel         string  `json:"kernel"`
	GenotypeLength int     `json:"genotype_length"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	Score          float64 `json:"score"`
	FinalHash      string  `json:"final_hash"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// CellEvent is one per-cell genotype change, derived from consecutive
// history snapshots. T is the snapshot index where the new sigil first
// appears; Exotype is the family that was active during the generation
// that produced it (0 when no exotype selection ran).
type CellEvent struct {
	T       int    `json:"t"`
	Cell    int    `json:"cell"`
	Sigil   string `json:"sigil"`
	Exotype int    `json:"exotype"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Record.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	dir := runDir(baseDir, artifacts.Record.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, "config.json"), artifacts.Record.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "run_record.json"), artifacts.Record); err != nil {
		return "", err
	}
	if err := WriteMetricsCSV(dir, artifacts.Windows); err != nil {
		return "", err
	}
	if artifacts.Distribution != nil {
		if err := writeJSON(filepath.Join(dir, "exotype_distribution.json"), artifacts.Distribution); err != nil {
			return "", err
		}
	}

	return dir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func IndexEntryFromRecord(rec model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:          rec.RunID,
		WiringID:       rec.Config.Wiring.ID,
		Kernel:         rec.Config.Kernel,
		GenotypeLength: rec.Config.GenotypeLength,
		Generations:    rec.Config.Generations,
		Seed:           rec.Config.Seed,
		Score:          rec.Score,
		FinalHash:      rec.FinalHash,
		CreatedAtUTC:   rec.CreatedAtUTC,
	}
}

func AppendRunLog(baseDir string, rec model.RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Join(baseDir, runLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Sync()
}

func ReadRunLog(baseDir string) ([]model.RunRecord, error) {
	file, err := os.Open(filepath.Join(baseDir, runLogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.RunRecord{}, nil
		}
		return nil, err
	}
	defer file.Close()

	records := make([]model.RunRecord, 0, 16)
	dec := json.NewDecoder(file)
	for {
		var rec model.RunRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func RunEvents(rec model.RunRecord) ([]CellEvent, error) {
	if len(rec.GenotypeHistory) == 0 {
		return nil, fmt.Errorf("run %s has no recorded history", rec.RunID)
	}

	events := make([]CellEvent, 0, 64)
	for t := 1; t < len(rec.GenotypeHistory); t++ {
		prev, curr := rec.GenotypeHistory[t-1], rec.GenotypeHistory[t]
		if len(curr) != len(prev) {
			return nil, fmt.Errorf("genotype history tick %d: length changed from %d to %d", t, len(prev), len(curr))
		}
		family := 0
		if t-1 < len(rec.HexagramByTick) {
			family = rec.HexagramByTick[t-1]
		}
		for i := 0; i < len(curr); i++ {
			if curr[i] != prev[i] {
				events = append(events, CellEvent{T: t, Cell: i, Sigil: string(curr[i]), Exotype: family})
			}
		}
	}
	return events, nil
}

func WriteRunEvents(w io.Writer, events []CellEvent) error {
	enc := json.NewEncoder(w)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
	return nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := runDir(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := runDir(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "run_record.json", "metrics_windows.csv"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	distPath := filepath.Join(src, "exotype_distribution.json")
	if _, err := os.Stat(distPath); err == nil {
		if err := copyFile(distPath, filepath.Join(dst, "exotype_distribution.json")); err != nil {
			return "", err
		}
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (model.RunConfig, bool, error) {
	path := filepath.Join(runDir(baseDir, runID), "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunConfig{}, false, nil
		}
		return model.RunConfig{}, false, err
	}

	var cfg model.RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadRunRecordArtifact(baseDir, runID string) (model.RunRecord, bool, error) {
	path := filepath.Join(runDir(baseDir, runID), "run_record.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var rec model.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.RunRecord{}, false, err
	}
	return rec, true, nil
}

func ReadDistributionArtifact(baseDir, runID string) (model.ExotypeDistribution, bool, error) {
	path := filepath.Join(runDir(baseDir, runID), "exotype_distribution.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ExotypeDistribution{}, false, nil
		}
		return model.ExotypeDistribution{}, false, err
	}

	var dist model.ExotypeDistribution
	if err := json.Unmarshal(data, &dist); err != nil {
		return model.ExotypeDistribution{}, false, err
	}
	return dist, true, nil
}

func WriteMetricsCSV(dir string, windows []model.MetricsWindowRecord) error {
	path := filepath.Join(dir, "metrics_windows.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"w_start", "w_end", "pressure", "selectivity", "structure", "activity", "regime"}); err != nil {
		return err
	}
	for _, window := range windows {
		if err := writer.Write([]string{
			strconv.Itoa(window.WStart),
			strconv.Itoa(window.WEnd),
			strconv.FormatFloat(window.Pressure, 'f', -1, 64),
			strconv.FormatFloat(window.Selectivity, 'f', -1, 64),
			strconv.FormatFloat(window.Structure, 'f', -1, 64),
			strconv.FormatFloat(window.Activity, 'f', -1, 64),
			window.Regime,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadMetricsCSV(baseDir, runID string) ([]model.MetricsWindowRecord, bool, error) {
	path := filepath.Join(runDir(baseDir, runID), "metrics_windows.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.MetricsWindowRecord{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 7 {
		return nil, false, fmt.Errorf("metrics csv header must have at least 7 columns")
	}

	windows := make([]model.MetricsWindowRecord, 0, 32)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(row) < 7 {
			return nil, false, fmt.Errorf("metrics csv row must have at least 7 columns")
		}
		window, err := parseMetricsRow(row)
		if err != nil {
			return nil, false, err
		}
		windows = append(windows, window)
	}
	return windows, true, nil
}

func parseMetricsRow(row []string) (model.MetricsWindowRecord, error) {
	wStart, err := strconv.Atoi(row[0])
	if err != nil {
		return model.MetricsWindowRecord{}, err
	}
	wEnd, err := strconv.Atoi(row[1])
	if err != nil {
		return model.MetricsWindowRecord{}, err
	}
	axes := make([]float64, 4)
	for i, cell := range row[2:6] {
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return model.MetricsWindowRecord{}, err
		}
		axes[i] = value
	}
	return model.MetricsWindowRecord{
		WStart:      wStart,
		WEnd:        wEnd,
		Pressure:    axes[0],
		Selectivity: axes[1],
		Structure:   axes[2],
		Activity:    axes[3],
		Regime:      strings.TrimSpace(row[6]),
	}, nil
}

func runDir(baseDir, runID string) string {
	return filepath.Join(baseDir, "run_"+runID)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
