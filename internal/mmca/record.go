package mmca

import (
	"fmt"
	"time"

	"proteus/internal/exotype"
	"proteus/internal/model"
	"proteus/internal/sigil"
	"proteus/internal/wiring"
)

// BuildRunRecord freezes a completed run into its serializable record.
// Version stamping is the storage codec's concern.
func BuildRunRecord(runID string, createdAt time.Time, cfg model.RunConfig, res Result) *model.RunRecord {
	rec := &model.RunRecord{
		RunID:        runID,
		CreatedAtUTC: createdAt.UTC().Format(time.RFC3339),
		Config:       cfg,
		FinalHash:    res.FinalHash,
	}
	rec.GenotypeHistory = make([]string, len(res.Genotypes))
	for i, g := range res.Genotypes {
		rec.GenotypeHistory[i] = g.String()
	}
	rec.PhenotypeHistory = make([]string, len(res.Phenotypes))
	for i, p := range res.Phenotypes {
		rec.PhenotypeHistory[i] = p.String()
	}
	rec.HexagramByTick = append([]int(nil), res.HexagramByTick...)
	return rec
}

// HistoryFromRecord re-parses a record's string histories into tapes,
// re-validating alphabet closure and the parallel-length invariant. A
// record that fails here was corrupted after the run wrote it.
func HistoryFromRecord(rec *model.RunRecord) ([]sigil.Genotype, []sigil.Phenotype, error) {
	a, err := sigil.NewAlphabet(rec.Config.AlphabetSymbols)
	if err != nil {
		return nil, nil, err
	}
	if len(rec.GenotypeHistory) != len(rec.PhenotypeHistory) {
		return nil, nil, model.NewConfigError("run-record", "history lengths diverge: genotype=%d phenotype=%d",
			len(rec.GenotypeHistory), len(rec.PhenotypeHistory))
	}
	genos := make([]sigil.Genotype, len(rec.GenotypeHistory))
	phenos := make([]sigil.Phenotype, len(rec.PhenotypeHistory))
	for i := range rec.GenotypeHistory {
		g, err := sigil.ParseGenotype(a, rec.GenotypeHistory[i])
		if err != nil {
			return nil, nil, fmt.Errorf("genotype history tick %d: %w", i, err)
		}
		p, err := sigil.ParsePhenotype(rec.PhenotypeHistory[i])
		if err != nil {
			return nil, nil, fmt.Errorf("phenotype history tick %d: %w", i, err)
		}
		if len(p) != len(g) {
			return nil, nil, model.NewConfigError("run-record", "tick %d tape lengths diverge: genotype=%d phenotype=%d", i, len(g), len(p))
		}
		genos[i], phenos[i] = g, p
	}
	return genos, phenos, nil
}

// ResolveConfig materializes a serializable run configuration. The embedded
// wiring record is authoritative for the base rule; exotype wiring ids
// resolve against the supplied set. A genotype length of zero is inferred
// from a supplied initial tape.
func ResolveConfig(rc model.RunConfig, available []wiring.Diagram, table *exotype.Table) (Config, error) {
	a, err := sigil.NewAlphabet(rc.AlphabetSymbols)
	if err != nil {
		return Config{}, err
	}
	base, err := wiring.FromRecord(rc.Wiring)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Alphabet:    a,
		Length:      rc.GenotypeLength,
		Generations: rc.Generations,
		Seed:        rc.Seed,
		Kernel:      rc.Kernel,
		Wiring:      base,
	}
	if rc.InitialGenotype != "" {
		g, err := sigil.ParseGenotype(a, rc.InitialGenotype)
		if err != nil {
			return Config{}, err
		}
		cfg.InitialGenotype = g
		if cfg.Length == 0 {
			cfg.Length = len(g)
		}
	}
	if rc.InitialPhenotype != "" {
		p, err := sigil.ParsePhenotype(rc.InitialPhenotype)
		if err != nil {
			return Config{}, err
		}
		cfg.InitialPhenotype = p
	}
	if rc.Exotype != nil {
		spec := exotype.FromSpecRecord(rc.Exotype)
		binding, err := exotype.Resolve(*spec, available, table, a)
		if err != nil {
			return Config{}, err
		}
		cfg.Exotype = binding
	}
	return cfg, nil
}
