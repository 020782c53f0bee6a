package exotype

import (
	"math/rand"

	"proteus/internal/model"
	"proteus/internal/sigil"
	"proteus/internal/wiring"
)

// Spec names the classifier configuration a run requests: which table
// version it expects, the sampling window, the query cadence, and the
// wiring variants classification selects among.
type Spec struct {
	TableVersion string
	WindowWidth  int
	CadenceTicks int
	WiringIDs    []string
}

// Binding is a resolved, validated classifier ready for use inside a run.
// Everything it holds is read-only after Resolve.
type Binding struct {
	table    *Table
	alphabet sigil.Alphabet
	window   int
	cadence  int
	wirings  []wiring.Diagram
}

// Resolve validates a spec against the loaded table and the available
// wiring set. Unknown identifiers fail here, before any tick executes.
func Resolve(spec Spec, available []wiring.Diagram, table *Table, alphabet sigil.Alphabet) (*Binding, error) {
	if table == nil {
		table = DefaultTable()
	}
	if spec.TableVersion != "" && spec.TableVersion != table.Version() {
		return nil, model.NewConfigError("exotype", "table version mismatch: got=%s want=%s", table.Version(), spec.TableVersion)
	}
	if spec.WindowWidth < 2 {
		return nil, model.NewConfigError("exotype", "window width must be >= 2, got %d", spec.WindowWidth)
	}
	if spec.CadenceTicks < 0 {
		return nil, model.NewConfigError("exotype", "cadence must be >= 0, got %d", spec.CadenceTicks)
	}
	cadence := spec.CadenceTicks
	if cadence == 0 {
		cadence = 1
	}
	if len(spec.WiringIDs) == 0 {
		return nil, model.NewConfigError("exotype", "at least one wiring id is required")
	}

	byID := make(map[string]wiring.Diagram, len(available))
	for _, d := range available {
		byID[d.ID] = d
	}
	wirings := make([]wiring.Diagram, 0, len(spec.WiringIDs))
	for _, id := range spec.WiringIDs {
		d, ok := byID[id]
		if !ok {
			return nil, model.NewConfigError("exotype", "unknown wiring id: %s", id)
		}
		if err := wiring.Validate(d); err != nil {
			return nil, err
		}
		wirings = append(wirings, d)
	}

	return &Binding{
		table:    table,
		alphabet: alphabet,
		window:   spec.WindowWidth,
		cadence:  cadence,
		wirings:  wirings,
	}, nil
}

func (b *Binding) TableVersion() string {
	return b.table.Version()
}

func (b *Binding) Window() int {
	return b.window
}

func (b *Binding) Cadence() int {
	return b.cadence
}

// Select samples a context from the run history and returns the wiring its
// physics family maps to. It reports false, consuming no draws, while the
// history is still shorter than the sampling window.
func (b *Binding) Select(genoHist []sigil.Genotype, phenoHist []sigil.Phenotype, rng *rand.Rand) (wiring.Diagram, PhysicsFamily, bool) {
	ctx, ok := SampleContext(b.alphabet, genoHist, phenoHist, rng, b.window)
	if !ok {
		return wiring.Diagram{}, PhysicsFamily{}, false
	}
	family := Classify(b.table, ctx)
	variant := b.wirings[(family.HexagramID-1)%len(b.wirings)]
	return variant, family, true
}

func ToSpecRecord(spec Spec) *model.ExotypeSpecRecord {
	return &model.ExotypeSpecRecord{
		TableVersion: spec.TableVersion,
		WindowWidth:  spec.WindowWidth,
		CadenceTicks: spec.CadenceTicks,
		WiringIDs:    append([]string(nil), spec.WiringIDs...),
	}
}

func FromSpecRecord(rec *model.ExotypeSpecRecord) *Spec {
	if rec == nil {
		return nil
	}
	return &Spec{
		TableVersion: rec.TableVersion,
		WindowWidth:  rec.WindowWidth,
		CadenceTicks: rec.CadenceTicks,
		WiringIDs:    append([]string(nil), rec.WiringIDs...),
	}
}
