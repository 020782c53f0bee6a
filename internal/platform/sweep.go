package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"proteus/internal/model"
)

const DefaultSweepWorkers = 4

// SweepConfig expands into the cross product of wiring ids and a seed
// range. Base supplies everything else each run shares; its RunID, Group,
// WiringID, Wiring, Seed, and Sink fields are overwritten per job.
type SweepConfig struct {
	SweepID   string
	WiringIDs []string
	SeedStart int64
	SeedCount int
	Workers   int
	Base      SimulationConfig
}

// SweepRun is the compact per-job outcome, aligned index-for-index with
// the expanded job list. A failed or cancelled job keeps its slot with
// an empty run id and the error that stopped it.
type SweepRun struct {
	RunID    string
	WiringID string
	Seed     int64
	Score    float64
	Regime   string
	Error    string
}

type SweepOutcome struct {
	SweepID        string
	StartedAtUTC   string
	CompletedAtUTC string
	WiringIDs      []string
	Seeds          []int64
	Runs           []SweepRun
	Results        []SimulationResult
}

// RunSweep executes every (wiring, seed) pair as an independent run,
// wiring-major seed-minor, with at most Workers in flight. The first
// failure cancels the rest; completed slots survive in the outcome so a
// partial sweep can still be inspected.
func (p *Polis) RunSweep(ctx context.Context, cfg SweepConfig) (SweepOutcome, error) {
	if !p.Started() {
		return SweepOutcome{}, fmt.Errorf("polis is not initialized")
	}
	if len(cfg.WiringIDs) == 0 {
		return SweepOutcome{}, model.NewConfigError("sweep", "at least one wiring id is required")
	}
	if cfg.SeedCount < 1 {
		return SweepOutcome{}, model.NewConfigError("sweep", "seed count must be >= 1, got %d", cfg.SeedCount)
	}
	for _, id := range cfg.WiringIDs {
		if _, ok := p.WiringByID(id); !ok {
			return SweepOutcome{}, model.NewConfigError("sweep", "wiring not registered: %s", id)
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultSweepWorkers
	}
	sweepID := cfg.SweepID
	if sweepID == "" {
		sweepID = uuid.NewString()
	}

	seeds := make([]int64, cfg.SeedCount)
	for i := range seeds {
		seeds[i] = cfg.SeedStart + int64(i)
	}

	type sweepJob struct {
		wiringID string
		seed     int64
	}
	jobs := make([]sweepJob, 0, len(cfg.WiringIDs)*len(seeds))
	for _, wiringID := range cfg.WiringIDs {
		for _, seed := range seeds {
			jobs = append(jobs, sweepJob{wiringID: wiringID, seed: seed})
		}
	}

	outcome := SweepOutcome{
		SweepID:      sweepID,
		StartedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		WiringIDs:    append([]string(nil), cfg.WiringIDs...),
		Seeds:        seeds,
	}

	results := make([]SimulationResult, len(jobs))
	jobErrs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			simCfg := cfg.Base
			simCfg.RunID = uuid.NewString()
			simCfg.Group = sweepID
			simCfg.WiringID = job.wiringID
			simCfg.Wiring = nil
			simCfg.Seed = job.seed
			simCfg.Sink = nil

			res, err := p.RunSimulation(gctx, simCfg)
			if err != nil {
				jobErrs[i] = err
				return fmt.Errorf("sweep run wiring=%s seed=%d: %w", job.wiringID, job.seed, err)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	outcome.CompletedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)

	outcome.Runs = make([]SweepRun, len(jobs))
	for i, job := range jobs {
		run := SweepRun{WiringID: job.wiringID, Seed: job.seed}
		if results[i].RunID != "" {
			run.RunID = results[i].RunID
			run.Score = results[i].Score
			run.Regime = dominantRegime(results[i].Regimes)
			outcome.Results = append(outcome.Results, results[i])
		} else if jobErrs[i] != nil {
			run.Error = jobErrs[i].Error()
		} else {
			run.Error = "not executed"
		}
		outcome.Runs[i] = run
	}
	return outcome, err
}

// dominantRegime picks the most frequent regime; ties break toward the
// lexicographically smaller name so summaries stay stable.
func dominantRegime(regimes map[string]int) string {
	best, bestCount := "", -1
	for name, count := range regimes {
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best
}
