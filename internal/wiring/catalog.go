package wiring

import "fmt"

// DefaultCatalog returns the built-in diagrams, one per mix mode. Hexagram
// names follow the King Wen sequence used by the physics-family table.
func DefaultCatalog() []Diagram {
	return []Diagram{
		{ID: "creative-majority", HexagramID: 1, HexagramName: "The Creative", MixMode: MixMajority, MatchThreshold: 0.5, UpdateProbability: 1.0},
		{ID: "receptive-scramble", HexagramID: 2, HexagramName: "The Receptive", MixMode: MixScramble, MatchThreshold: 0.3, UpdateProbability: 0.7},
		{ID: "difficulty-xor", HexagramID: 3, HexagramName: "Difficulty at the Beginning", MixMode: MixXORNeighbor, MatchThreshold: 0.0, UpdateProbability: 0.9},
		{ID: "waiting-swap", HexagramID: 5, HexagramName: "Waiting", MixMode: MixSwapHalves, MatchThreshold: 0.4, UpdateProbability: 0.8},
		{ID: "treading-rotate", HexagramID: 10, HexagramName: "Treading", MixMode: MixRotateRight, MatchThreshold: 0.2, UpdateProbability: 0.6},
	}
}

// FindInCatalog resolves a diagram id against the built-in catalog.
func FindInCatalog(id string) (Diagram, error) {
	for _, d := range DefaultCatalog() {
		if d.ID == id {
			return d, nil
		}
	}
	return Diagram{}, fmt.Errorf("wiring not found in catalog: %s", id)
}
