package exotype

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type parityFamilyFixture struct {
	Source   string `json:"source"`
	Version  string `json:"version"`
	Families []struct {
		Bucket       int    `json:"bucket"`
		HexagramID   int    `json:"hexagram_id"`
		HexagramName string `json:"hexagram_name"`
	} `json:"families"`
}

func TestReferenceFamilyFixtureMatchesDefaultTable(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "fixtures", "parity", "ref_hexagram_families.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fixture parityFamilyFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if fixture.Source == "" {
		t.Fatal("expected source in parity fixture")
	}

	table := DefaultTable()
	if fixture.Version != table.Version() {
		t.Fatalf("fixture version %s does not match table version %s", fixture.Version, table.Version())
	}
	if len(fixture.Families) != 64 {
		t.Fatalf("expected 64 reference families, got %d", len(fixture.Families))
	}

	for _, family := range fixture.Families {
		entry, err := table.Lookup(family.Bucket)
		if err != nil {
			t.Fatalf("lookup bucket %d: %v", family.Bucket, err)
		}
		if entry.HexagramID != family.HexagramID {
			t.Fatalf("bucket %d: got hexagram %d, reference says %d", family.Bucket, entry.HexagramID, family.HexagramID)
		}
		if entry.HexagramName != family.HexagramName {
			t.Fatalf("bucket %d: got name %q, reference says %q", family.Bucket, entry.HexagramName, family.HexagramName)
		}
	}
}
