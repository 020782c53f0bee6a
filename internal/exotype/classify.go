package exotype

// Coord is the 8x8 window-statistics coordinate a classification binned
// into: row quantizes entropy, column quantizes change rate.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PhysicsFamily is a read-only classification result.
type PhysicsFamily struct {
	HexagramID   int    `json:"hexagram_id"`
	HexagramName string `json:"hexagram_name"`
	Coord        Coord  `json:"coord"`
}

// Classify maps a context to its physics family through the bucket table.
// The mapping is a pure function of the context and the table.
func Classify(t *Table, ctx Context) PhysicsFamily {
	coord := Coord{Row: quantize8(ctx.Entropy), Col: quantize8(ctx.ChangeRate)}
	entry, err := t.Lookup(coord.Row*8 + coord.Col)
	if err != nil {
		// Unreachable: quantize8 stays in [0,7].
		panic(err)
	}
	return PhysicsFamily{
		HexagramID:   entry.HexagramID,
		HexagramName: entry.HexagramName,
		Coord:        coord,
	}
}

// quantize8 bins a [0,1] statistic into [0,7]; 1.0 lands in the top bin and
// out-of-range values clamp.
func quantize8(v float64) int {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 7
	}
	return int(v * 8)
}
