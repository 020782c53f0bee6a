package exotype

import (
	"encoding/json"
	"fmt"
	"os"

	"proteus/internal/model"
)

// DefaultTableVersion identifies the compiled-in bucket table. Classification
// results are only comparable across runs that agree on the table version.
const DefaultTableVersion = "v1"

// Entry maps one coordinate bucket to a hexagram.
type Entry struct {
	Bucket       int    `json:"bucket"`
	HexagramID   int    `json:"hexagram_id"`
	HexagramName string `json:"hexagram_name"`
}

// Table is the fixed 64-entry physics-family lookup table. It is loaded once
// and read-only afterwards; classification never re-derives it.
type Table struct {
	version string
	entries [64]Entry
}

// King Wen sequence names, index i naming hexagram i+1.
var hexagramNames = [64]string{
	"The Creative",
	"The Receptive",
	"Difficulty at the Beginning",
	"Youthful Folly",
	"Waiting",
	"Conflict",
	"The Army",
	"Holding Together",
	"The Taming Power of the Small",
	"Treading",
	"Peace",
	"Standstill",
	"Fellowship with Men",
	"Possession in Great Measure",
	"Modesty",
	"Enthusiasm",
	"Following",
	"Work on What Has Been Spoiled",
	"Approach",
	"Contemplation",
	"Biting Through",
	"Grace",
	"Splitting Apart",
	"Return",
	"Innocence",
	"The Taming Power of the Great",
	"The Corners of the Mouth",
	"Preponderance of the Great",
	"The Abysmal",
	"The Clinging",
	"Influence",
	"Duration",
	"Retreat",
	"The Power of the Great",
	"Progress",
	"Darkening of the Light",
	"The Family",
	"Opposition",
	"Obstruction",
	"Deliverance",
	"Decrease",
	"Increase",
	"Break-through",
	"Coming to Meet",
	"Gathering Together",
	"Pushing Upward",
	"Oppression",
	"The Well",
	"Revolution",
	"The Caldron",
	"The Arousing",
	"Keeping Still",
	"Development",
	"The Marrying Maiden",
	"Abundance",
	"The Wanderer",
	"The Gentle",
	"The Joyous",
	"Dispersion",
	"Limitation",
	"Inner Truth",
	"Preponderance of the Small",
	"After Completion",
	"Before Completion",
}

// HexagramName returns the King Wen name for an id in [1,64].
func HexagramName(id int) (string, error) {
	if id < 1 || id > 64 {
		return "", fmt.Errorf("hexagram id must be in [1,64], got %d", id)
	}
	return hexagramNames[id-1], nil
}

// DefaultTable returns the v1 table: bucket k maps to hexagram k+1.
func DefaultTable() *Table {
	t := &Table{version: DefaultTableVersion}
	for i := range t.entries {
		t.entries[i] = Entry{Bucket: i, HexagramID: i + 1, HexagramName: hexagramNames[i]}
	}
	return t
}

func (t *Table) Version() string {
	return t.version
}

// Lookup resolves a bucket in [0,63].
func (t *Table) Lookup(bucket int) (Entry, error) {
	if bucket < 0 || bucket > 63 {
		return Entry{}, fmt.Errorf("bucket must be in [0,63], got %d", bucket)
	}
	return t.entries[bucket], nil
}

// Entries returns a defensive copy in bucket order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries[:])
	return out
}

type tableFile struct {
	Version  string  `json:"version"`
	Families []Entry `json:"families"`
}

// LoadTable reads a table asset from a JSON file. The asset must define
// every bucket exactly once; a partial or contradictory table is a
// configuration error, never silently patched.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read family table: %w", err)
	}
	var file tableFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse family table %s: %w", path, err)
	}
	return buildTable(file)
}

func buildTable(file tableFile) (*Table, error) {
	if file.Version == "" {
		return nil, model.NewConfigError("family-table", "version is required")
	}
	if len(file.Families) != 64 {
		return nil, model.NewConfigError("family-table", "need exactly 64 families, got %d", len(file.Families))
	}
	t := &Table{version: file.Version}
	seen := make(map[int]bool, 64)
	for _, entry := range file.Families {
		if entry.Bucket < 0 || entry.Bucket > 63 {
			return nil, model.NewConfigError("family-table", "bucket out of range: %d", entry.Bucket)
		}
		if seen[entry.Bucket] {
			return nil, model.NewConfigError("family-table", "duplicate bucket: %d", entry.Bucket)
		}
		if entry.HexagramID < 1 || entry.HexagramID > 64 {
			return nil, model.NewConfigError("family-table", "bucket %d: hexagram id must be in [1,64], got %d", entry.Bucket, entry.HexagramID)
		}
		if entry.HexagramName == "" {
			return nil, model.NewConfigError("family-table", "bucket %d: hexagram name is required", entry.Bucket)
		}
		seen[entry.Bucket] = true
		t.entries[entry.Bucket] = entry
	}
	return t, nil
}

// SaveTable writes a table asset as indented JSON.
func SaveTable(path string, t *Table) error {
	file := tableFile{Version: t.version, Families: t.Entries()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode family table: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
