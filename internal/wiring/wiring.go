package wiring

import (
	"proteus/internal/model"
	"proteus/internal/sigil"
)

// MixMode names the neighborhood-combination function of a diagram. The set
// is closed: every consumer dispatches through one exhaustive switch and
// treats anything else as a configuration error.
type MixMode string

const (
	MixMajority    MixMode = "majority"
	MixScramble    MixMode = "scramble"
	MixXORNeighbor MixMode = "xor-neighbor"
	MixSwapHalves  MixMode = "swap-halves"
	MixRotateRight MixMode = "rotate-right"
)

// MixModes lists all legal modes in a fixed order.
func MixModes() []MixMode {
	return []MixMode{MixMajority, MixScramble, MixXORNeighbor, MixSwapHalves, MixRotateRight}
}

// Diagram is an immutable compiled local-rule descriptor. A run loads its
// diagrams once; contextual switching only ever selects among validated
// diagrams, it never edits one.
type Diagram struct {
	ID                string
	HexagramID        int
	HexagramName      string
	MixMode           MixMode
	MatchThreshold    float64
	UpdateProbability float64
}

// Validate rejects a diagram before simulation starts. Invalid diagrams are
// never tolerated mid-run.
func Validate(d Diagram) error {
	if d.ID == "" {
		return model.NewConfigError("wiring", "id is required")
	}
	if d.HexagramID < 1 || d.HexagramID > 64 {
		return model.NewConfigError("wiring", "hexagram id must be in [1,64], got %d", d.HexagramID)
	}
	switch d.MixMode {
	case MixMajority, MixScramble, MixXORNeighbor, MixSwapHalves, MixRotateRight:
	default:
		return model.NewConfigError("wiring", "unknown mix mode: %s", d.MixMode)
	}
	if d.MatchThreshold < 0 || d.MatchThreshold > 1 {
		return model.NewConfigError("wiring", "match threshold must be in [0,1], got %g", d.MatchThreshold)
	}
	if d.UpdateProbability < 0 || d.UpdateProbability > 1 {
		return model.NewConfigError("wiring", "update probability must be in [0,1], got %g", d.UpdateProbability)
	}
	return nil
}

func ToRecord(d Diagram) model.WiringRecord {
	return model.WiringRecord{
		ID:                d.ID,
		HexagramID:        d.HexagramID,
		HexagramName:      d.HexagramName,
		MixMode:           string(d.MixMode),
		MatchThreshold:    d.MatchThreshold,
		UpdateProbability: d.UpdateProbability,
	}
}

func FromRecord(rec model.WiringRecord) (Diagram, error) {
	d := Diagram{
		ID:                rec.ID,
		HexagramID:        rec.HexagramID,
		HexagramName:      rec.HexagramName,
		MixMode:           MixMode(rec.MixMode),
		MatchThreshold:    rec.MatchThreshold,
		UpdateProbability: rec.UpdateProbability,
	}
	if err := Validate(d); err != nil {
		return Diagram{}, err
	}
	return d, nil
}

// Neighborhood is the frozen window a cell update reads: predecessor, the
// cell itself, successor, in tape order.
type Neighborhood []sigil.Sigil
