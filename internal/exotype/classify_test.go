package exotype

import "testing"

func TestClassifyMapsCornerContextsToCornerBuckets(t *testing.T) {
	table := DefaultTable()

	low := Classify(table, Context{Entropy: 0, ChangeRate: 0})
	if low.Coord != (Coord{Row: 0, Col: 0}) || low.HexagramID != 1 {
		t.Fatalf("frozen corner: got=%+v", low)
	}
	high := Classify(table, Context{Entropy: 1, ChangeRate: 1})
	if high.Coord != (Coord{Row: 7, Col: 7}) || high.HexagramID != 64 {
		t.Fatalf("hot corner: got=%+v", high)
	}
}

func TestClassifyQuantizesInteriorValues(t *testing.T) {
	table := DefaultTable()

	// 0.5 lands exactly on the bin edge and belongs to the upper bin.
	got := Classify(table, Context{Entropy: 0.5, ChangeRate: 0.25})
	want := Coord{Row: 4, Col: 2}
	if got.Coord != want {
		t.Fatalf("coord: got=%+v want=%+v", got.Coord, want)
	}
	if got.HexagramID != want.Row*8+want.Col+1 {
		t.Fatalf("v1 bucket order broken: got id %d for coord %+v", got.HexagramID, got.Coord)
	}
	if got.HexagramName != "Progress" {
		t.Fatalf("hexagram name: got=%s want=Progress", got.HexagramName)
	}
}

func TestClassifyClampsOutOfRangeStatistics(t *testing.T) {
	table := DefaultTable()

	got := Classify(table, Context{Entropy: -0.5, ChangeRate: 1.5})
	if got.Coord != (Coord{Row: 0, Col: 7}) {
		t.Fatalf("clamped coord: got=%+v", got.Coord)
	}
}

func TestClassifyIsAPureFunctionOfContextAndTable(t *testing.T) {
	table := DefaultTable()
	ctx := Context{WStart: 3, WEnd: 9, Entropy: 0.73, ChangeRate: 0.41}

	first := Classify(table, ctx)
	for i := 0; i < 10; i++ {
		if again := Classify(table, ctx); again != first {
			t.Fatalf("classification drifted on repeat %d: got=%+v want=%+v", i, again, first)
		}
	}
}
