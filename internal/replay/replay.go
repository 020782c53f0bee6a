package replay

import (
	"context"
	"fmt"
	"sort"

	"proteus/internal/exotype"
	"proteus/internal/mmca"
	"proteus/internal/model"
	"proteus/internal/sigil"
	"proteus/internal/wiring"
)

// TickCheck is the outcome of one compared tick.
type TickCheck struct {
	Tick     int
	WantHash string
	GotHash  string
	Match    bool
}

// Report is the full outcome of a replay check. A single mismatched tick
// fails the replay, but every requested tick is reported individually —
// mismatches are never aggregated away.
type Report struct {
	RunID   string
	Kernel  string
	Checked []TickCheck

	// Mismatches holds one structured error per failing tick.
	Mismatches []model.ReplayMismatchError

	// RecordConsistent is false when the stored final hash disagrees with
	// the hash recomputed from the record's own histories, which means the
	// record was altered after the run wrote it.
	RecordConsistent bool

	Pass bool
}

// Check re-executes a recorded run under its recorded kernel and compares
// per-tick snapshot hashes against hashes recomputed from the record. A
// nil or empty tick selection means every tick; a requested tick outside
// the recorded history is a configuration error raised before any
// re-execution work.
func Check(ctx context.Context, rec *model.RunRecord, ticks []int, available []wiring.Diagram, table *exotype.Table) (Report, error) {
	genos, phenos, err := mmca.HistoryFromRecord(rec)
	if err != nil {
		return Report{}, err
	}
	if want := rec.Config.Generations + 1; len(genos) != want {
		return Report{}, model.NewConfigError("run-record", "history length: got=%d want=%d", len(genos), want)
	}
	selected, err := selectTicks(ticks, len(genos))
	if err != nil {
		return Report{}, err
	}

	cfg, err := mmca.ResolveConfig(rec.Config, available, table)
	if err != nil {
		return Report{}, err
	}
	m, err := mmca.NewMachine(cfg)
	if err != nil {
		return Report{}, err
	}
	if err := m.Run(ctx); err != nil {
		return Report{}, fmt.Errorf("re-execute run %s: %w", rec.RunID, err)
	}
	res := m.Result()

	report := Report{
		RunID:            rec.RunID,
		Kernel:           m.KernelName(),
		Checked:          make([]TickCheck, 0, len(selected)),
		RecordConsistent: recordFinalHash(genos, phenos) == rec.FinalHash,
		Pass:             true,
	}
	for _, tick := range selected {
		want := mmca.TickHash(genos[tick], phenos[tick])
		got := res.TickHashes[tick]
		check := TickCheck{Tick: tick, WantHash: want, GotHash: got, Match: got == want}
		report.Checked = append(report.Checked, check)
		if !check.Match {
			report.Pass = false
			report.Mismatches = append(report.Mismatches, model.ReplayMismatchError{
				Tick:     tick,
				WantHash: want,
				GotHash:  got,
			})
		}
	}
	if !report.RecordConsistent {
		report.Pass = false
	}
	return report, nil
}

func selectTicks(ticks []int, historyLen int) ([]int, error) {
	if len(ticks) == 0 {
		all := make([]int, historyLen)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	out := append([]int(nil), ticks...)
	sort.Ints(out)
	for _, tick := range out {
		if tick < 0 || tick >= historyLen {
			return nil, model.NewConfigError("replay", "tick %d outside recorded history [0,%d)", tick, historyLen)
		}
	}
	return out, nil
}

func recordFinalHash(genos []sigil.Genotype, phenos []sigil.Phenotype) string {
	hashes := make([]string, len(genos))
	for i := range genos {
		hashes[i] = mmca.TickHash(genos[i], phenos[i])
	}
	return mmca.HistoryHash(hashes)
}

// KernelRun is one kernel's re-execution outcome in a cross-kernel check.
type KernelRun struct {
	Kernel    string
	FinalHash string
	Match     bool
}

// KernelReport compares every registered kernel against the record.
type KernelReport struct {
	RunID      string
	RecordHash string
	Runs       []KernelRun
	Pass       bool
}

// CrossKernelCheck re-executes the record under every kernel selector and
// compares final hashes, witnessing that kernel choice never changes
// observable output.
func CrossKernelCheck(ctx context.Context, rec *model.RunRecord, available []wiring.Diagram, table *exotype.Table) (KernelReport, error) {
	genos, phenos, err := mmca.HistoryFromRecord(rec)
	if err != nil {
		return KernelReport{}, err
	}
	report := KernelReport{
		RunID:      rec.RunID,
		RecordHash: recordFinalHash(genos, phenos),
		Pass:       true,
	}
	for _, name := range mmca.KernelNames() {
		cfg, err := mmca.ResolveConfig(rec.Config, available, table)
		if err != nil {
			return KernelReport{}, err
		}
		cfg.Kernel = name
		m, err := mmca.NewMachine(cfg)
		if err != nil {
			return KernelReport{}, err
		}
		if err := m.Run(ctx); err != nil {
			return KernelReport{}, fmt.Errorf("re-execute run %s under %s: %w", rec.RunID, name, err)
		}
		run := KernelRun{Kernel: name, FinalHash: m.Result().FinalHash}
		run.Match = run.FinalHash == report.RecordHash
		if !run.Match {
			report.Pass = false
		}
		report.Runs = append(report.Runs, run)
	}
	return report, nil
}
