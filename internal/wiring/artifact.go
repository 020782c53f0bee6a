package wiring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// diagramFile is the on-disk shape of one wiring artifact. YAML and JSON
// share the same field names.
type diagramFile struct {
	ID                string  `json:"id" yaml:"id"`
	HexagramID        int     `json:"hexagram_id" yaml:"hexagram_id"`
	HexagramName      string  `json:"hexagram_name" yaml:"hexagram_name"`
	MixMode           string  `json:"mix_mode" yaml:"mix_mode"`
	MatchThreshold    float64 `json:"match_threshold" yaml:"match_threshold"`
	UpdateProbability float64 `json:"update_probability" yaml:"update_probability"`
}

type setFile struct {
	Wirings []diagramFile `json:"wirings" yaml:"wirings"`
}

// LoadDiagram reads and validates one wiring artifact. The extension picks
// the format: .yaml/.yml parse as YAML, everything else as JSON.
func LoadDiagram(path string) (Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Diagram{}, fmt.Errorf("read wiring artifact: %w", err)
	}
	var file diagramFile
	if err := unmarshalByExt(path, data, &file); err != nil {
		return Diagram{}, fmt.Errorf("parse wiring artifact %s: %w", path, err)
	}
	return fromFile(file)
}

// LoadSet reads a multi-diagram artifact: a document with a top-level
// "wirings" list. Every entry must validate; one bad diagram rejects the
// whole set.
func LoadSet(path string) ([]Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wiring set: %w", err)
	}
	var file setFile
	if err := unmarshalByExt(path, data, &file); err != nil {
		return nil, fmt.Errorf("parse wiring set %s: %w", path, err)
	}
	if len(file.Wirings) == 0 {
		return nil, fmt.Errorf("wiring set %s has no wirings", path)
	}
	out := make([]Diagram, 0, len(file.Wirings))
	seen := make(map[string]struct{}, len(file.Wirings))
	for i, entry := range file.Wirings {
		d, err := fromFile(entry)
		if err != nil {
			return nil, fmt.Errorf("wiring set entry %d: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("wiring set entry %d: duplicate id %s", i, d.ID)
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// SaveDiagram writes one validated diagram in the format the extension
// selects.
func SaveDiagram(path string, d Diagram) error {
	if err := Validate(d); err != nil {
		return err
	}
	file := toFile(d)
	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(file)
	} else {
		data, err = json.MarshalIndent(file, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("encode wiring artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func unmarshalByExt(path string, data []byte, v any) error {
	if isYAMLPath(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func fromFile(file diagramFile) (Diagram, error) {
	d := Diagram{
		ID:                file.ID,
		HexagramID:        file.HexagramID,
		HexagramName:      file.HexagramName,
		MixMode:           MixMode(file.MixMode),
		MatchThreshold:    file.MatchThreshold,
		UpdateProbability: file.UpdateProbability,
	}
	if err := Validate(d); err != nil {
		return Diagram{}, err
	}
	return d, nil
}

func toFile(d Diagram) diagramFile {
	return diagramFile{
		ID:                d.ID,
		HexagramID:        d.HexagramID,
		HexagramName:      d.HexagramName,
		MixMode:           string(d.MixMode),
		MatchThreshold:    d.MatchThreshold,
		UpdateProbability: d.UpdateProbability,
	}
}
