package proteus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"proteus/internal/metrics"
	"proteus/internal/model"
	"proteus/internal/platform"
	"proteus/internal/stats"
	"proteus/internal/storage"
	"proteus/internal/wiring"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "proteus.db"

	defaultWiringID = "creative-majority"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	runsDir    string
	exportsDir string
}

type RunRequest struct {
	RunID            string
	Alphabet         string
	GenotypeLength   int
	InitialGenotype  string
	InitialPhenotype string
	Generations      int
	Seed             int64
	Kernel           string
	WiringID         string
	Wiring           *model.WiringRecord
	ExotypeWiringIDs []string
	ExotypeWindow    int
	ExotypeCadence   int
	MetricsWidth     int
	MetricsStride    int
	FamilySamples    int
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Kernel       string
	WiringID     string
	Generations  int
	Score        float64
	FinalHash    string
	Regimes      map[string]int
	Windows      int
	Distribution *model.ExotypeDistribution
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	WiringID       string
	Kernel         string
	GenotypeLength int
	Generations    int
	Seed           int64
	Score          float64
	FinalHash      string
}

type ReplayRequest struct {
	RunID  string
	Latest bool
	Ticks  []int
}

type ReplayMismatch struct {
	Tick     int
	WantHash string
	GotHash  string
}

type ReplaySummary struct {
	RunID            string
	Kernel           string
	TicksChecked     int
	Mismatches       []ReplayMismatch
	RecordConsistent bool
	Pass             bool
}

type KernelCheckRequest struct {
	RunID  string
	Latest bool
}

type KernelCheckRun struct {
	Kernel    string
	FinalHash string
	Match     bool
}

type KernelCheckSummary struct {
	RunID      string
	RecordHash string
	Runs       []KernelCheckRun
	Pass       bool
}

type MetricsRequest struct {
	RunID  string
	Latest bool
	Width  int
	Stride int
}

type SampleRequest struct {
	RunID   string
	Latest  bool
	Window  int
	Samples int
	Seed    int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type EventsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type EventItem struct {
	Tick    int
	Cell    int
	Sigil   string
	Exotype int
}

type SweepRequest struct {
	SweepID   string
	Notes     string
	WiringIDs []string
	SeedStart int64
	SeedCount int
	Workers   int

	Alphabet       string
	GenotypeLength int
	Generations    int
	Kernel         string
	MetricsWidth   int
	MetricsStride  int

	ScoreGoal  *float64
	ReportName string
}

type SweepSummary struct {
	SweepID       string
	ReportDir     string
	TotalRuns     int
	CompletedRuns int
	HitRate       float64
	AvgScore      float64
	MaxScore      float64
	BestRunID     string
	GraphPaths    []string
}

type TableFamily struct {
	Bucket       int
	HexagramID   int
	HexagramName string
}

type TableSummary struct {
	Version  string
	Families []TableFamily
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Reset drops all persisted runs and restarts the platform lifecycle with
// the built-in wiring catalog. Disk artifacts are left untouched.
func (c *Client) Reset(ctx context.Context) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.WiringID == "" && req.Wiring == nil {
		req.WiringID = defaultWiringID
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := p.RunSimulation(ctx, platform.SimulationConfig{
		RunID:            req.RunID,
		AlphabetSymbols:  req.Alphabet,
		GenotypeLength:   req.GenotypeLength,
		InitialGenotype:  req.InitialGenotype,
		InitialPhenotype: req.InitialPhenotype,
		Generations:      req.Generations,
		Seed:             req.Seed,
		Kernel:           req.Kernel,
		WiringID:         req.WiringID,
		Wiring:           req.Wiring,
		ExotypeWiringIDs: req.ExotypeWiringIDs,
		ExotypeWindow:    req.ExotypeWindow,
		ExotypeCadence:   req.ExotypeCadence,
		MetricsWidth:     req.MetricsWidth,
		MetricsStride:    req.MetricsStride,
		FamilySamples:    req.FamilySamples,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Record:       result.Record,
		Windows:      result.Windows,
		Distribution: result.Distribution,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.IndexEntryFromRecord(result.Record)); err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunLog(c.runsDir, result.Record); err != nil {
		return RunSummary{}, err
	}

	regimes := make(map[string]int, len(result.Regimes))
	for regime, count := range result.Regimes {
		regimes[regime] = count
	}
	return RunSummary{
		RunID:        result.RunID,
		ArtifactsDir: filepath.Clean(runDir),
		Kernel:       result.Kernel,
		WiringID:     result.Record.Config.Wiring.ID,
		Generations:  result.Record.Config.Generations,
		Score:        result.Score,
		FinalHash:    result.FinalHash,
		Regimes:      regimes,
		Windows:      len(result.Windows),
		Distribution: result.Distribution,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			WiringID:       e.WiringID,
			Kernel:         e.Kernel,
			GenotypeLength: e.GenotypeLength,
			Generations:    e.Generations,
			Seed:           e.Seed,
			Score:          e.Score,
			FinalHash:      e.FinalHash,
		})
	}
	return out, nil
}

func (c *Client) Replay(ctx context.Context, req ReplayRequest) (ReplaySummary, error) {
	if req.RunID != "" && req.Latest {
		return ReplaySummary{}, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return ReplaySummary{}, err
		}
		if len(entries) == 0 {
			return ReplaySummary{}, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return ReplaySummary{}, errors.New("replay requires run id or latest")
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return ReplaySummary{}, err
	}
	report, err := p.ReplayRun(ctx, runID, req.Ticks)
	if err != nil {
		return ReplaySummary{}, err
	}

	mismatches := make([]ReplayMismatch, 0, len(report.Mismatches))
	for _, m := range report.Mismatches {
		mismatches = append(mismatches, ReplayMismatch{
			Tick:     m.Tick,
			WantHash: m.WantHash,
			GotHash:  m.GotHash,
		})
	}
	return ReplaySummary{
		RunID:            report.RunID,
		Kernel:           report.Kernel,
		TicksChecked:     len(report.Checked),
		Mismatches:       mismatches,
		RecordConsistent: report.RecordConsistent,
		Pass:             report.Pass,
	}, nil
}

func (c *Client) CrossKernel(ctx context.Context, req KernelCheckRequest) (KernelCheckSummary, error) {
	if req.RunID != "" && req.Latest {
		return KernelCheckSummary{}, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return KernelCheckSummary{}, err
		}
		if len(entries) == 0 {
			return KernelCheckSummary{}, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return KernelCheckSummary{}, errors.New("cross-kernel check requires run id or latest")
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return KernelCheckSummary{}, err
	}
	report, err := p.CrossKernelReplay(ctx, runID)
	if err != nil {
		return KernelCheckSummary{}, err
	}

	runs := make([]KernelCheckRun, 0, len(report.Runs))
	for _, run := range report.Runs {
		runs = append(runs, KernelCheckRun{
			Kernel:    run.Kernel,
			FinalHash: run.FinalHash,
			Match:     run.Match,
		})
	}
	return KernelCheckSummary{
		RunID:      report.RunID,
		RecordHash: report.RecordHash,
		Runs:       runs,
		Pass:       report.Pass,
	}, nil
}

func (c *Client) Metrics(ctx context.Context, req MetricsRequest) ([]model.MetricsWindowRecord, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return nil, errors.New("metrics requires run id or latest")
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	windows, err := p.MetricsForRun(ctx, runID, metrics.Params{
		Width:  req.Width,
		Stride: req.Stride,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.MetricsWindowRecord, len(windows))
	copy(out, windows)
	return out, nil
}

func (c *Client) SampleExotype(ctx context.Context, req SampleRequest) (model.ExotypeDistribution, error) {
	if req.RunID != "" && req.Latest {
		return model.ExotypeDistribution{}, errors.New("use either run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return model.ExotypeDistribution{}, err
		}
		if len(entries) == 0 {
			return model.ExotypeDistribution{}, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return model.ExotypeDistribution{}, errors.New("sampling requires run id or latest")
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return model.ExotypeDistribution{}, err
	}
	return p.SampleFamilies(ctx, platform.FamilySampleConfig{
		RunID:   runID,
		Window:  req.Window,
		Samples: req.Samples,
		Seed:    req.Seed,
	})
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Events lists per-cell genotype changes between consecutive recorded
// snapshots, tagged with the exotype family active when each happened.
func (c *Client) Events(ctx context.Context, req EventsRequest) ([]EventItem, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return nil, errors.New("events requires run id or latest")
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	rec, ok, err := c.store.GetRunRecord(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	events, err := stats.RunEvents(rec)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(events) > req.Limit {
		events = events[:req.Limit]
	}

	out := make([]EventItem, 0, len(events))
	for _, event := range events {
		out = append(out, EventItem{
			Tick:    event.T,
			Cell:    event.Cell,
			Sigil:   event.Sigil,
			Exotype: event.Exotype,
		})
	}
	return out, nil
}

func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	if req.SeedCount <= 0 {
		req.SeedCount = 1
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	wiringIDs := req.WiringIDs
	if len(wiringIDs) == 0 {
		wiringIDs = p.RegisteredWirings()
	}

	outcome, sweepErr := p.RunSweep(ctx, platform.SweepConfig{
		SweepID:   req.SweepID,
		WiringIDs: wiringIDs,
		SeedStart: req.SeedStart,
		SeedCount: req.SeedCount,
		Workers:   req.Workers,
		Base: platform.SimulationConfig{
			AlphabetSymbols: req.Alphabet,
			GenotypeLength:  req.GenotypeLength,
			Generations:     req.Generations,
			Kernel:          req.Kernel,
			MetricsWidth:    req.MetricsWidth,
			MetricsStride:   req.MetricsStride,
		},
	})
	if outcome.SweepID == "" {
		return SweepSummary{}, sweepErr
	}

	for _, result := range outcome.Results {
		if _, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
			Record:       result.Record,
			Windows:      result.Windows,
			Distribution: result.Distribution,
		}); err != nil {
			return SweepSummary{}, err
		}
		if err := stats.AppendRunIndex(c.runsDir, stats.IndexEntryFromRecord(result.Record)); err != nil {
			return SweepSummary{}, err
		}
	}

	exp := stats.SweepExperiment{
		ID:             outcome.SweepID,
		Notes:          req.Notes,
		ProgressFlag:   "completed",
		StartedAtUTC:   outcome.StartedAtUTC,
		CompletedAtUTC: outcome.CompletedAtUTC,
		WiringIDs:      outcome.WiringIDs,
		Seeds:          outcome.Seeds,
		TotalRuns:      len(outcome.Runs),
	}
	for _, run := range outcome.Runs {
		if run.RunID == "" {
			continue
		}
		exp.RunIDs = append(exp.RunIDs, run.RunID)
		exp.Summaries = append(exp.Summaries, stats.SweepRunSummary{
			RunID:    run.RunID,
			WiringID: run.WiringID,
			Seed:     run.Seed,
			Score:    run.Score,
			Regime:   run.Regime,
		})
	}
	exp.RunIndex = len(exp.RunIDs)
	if sweepErr != nil {
		exp.ProgressFlag = "interrupted"
		exp.Interruptions = append(exp.Interruptions, sweepErr.Error())
	}
	if err := stats.WriteSweepExperiment(c.runsDir, exp); err != nil {
		return SweepSummary{}, err
	}
	if sweepErr != nil {
		return SweepSummary{}, sweepErr
	}

	scores, err := stats.BuildSweepScoreStats(c.runsDir, exp, req.ScoreGoal)
	if err != nil {
		return SweepSummary{}, err
	}
	byWiring := stats.BuildSweepWiringStats(scores.Runs)
	pareto, err := stats.BuildSweepPareto(c.runsDir, exp)
	if err != nil {
		return SweepSummary{}, err
	}
	reportDir, err := stats.WriteSweepReport(c.runsDir, stats.SweepReport{
		SweepID:      outcome.SweepID,
		ReportName:   req.ReportName,
		Experiment:   exp,
		ByWiring:     byWiring,
		Scores:       scores,
		ParetoRunIDs: pareto,
	})
	if err != nil {
		return SweepSummary{}, err
	}

	graphs, err := stats.BuildSweepGraphs(c.runsDir, exp)
	if err != nil {
		return SweepSummary{}, err
	}
	graphPostfix := req.ReportName
	if graphPostfix == "" {
		graphPostfix = "report"
	}
	graphPaths, err := stats.WriteSweepGraphs(c.runsDir, outcome.SweepID, graphPostfix+"_Graphs", graphs)
	if err != nil {
		return SweepSummary{}, err
	}

	summary := SweepSummary{
		SweepID:       outcome.SweepID,
		ReportDir:     filepath.Clean(reportDir),
		TotalRuns:     len(outcome.Runs),
		CompletedRuns: len(exp.RunIDs),
		HitRate:       scores.HitRate,
		AvgScore:      scores.AvgScore,
		MaxScore:      scores.MaxScore,
		GraphPaths:    graphPaths,
	}
	best := ""
	bestScore := 0.0
	for _, w := range byWiring {
		if best == "" || w.MaxScore > bestScore {
			best = w.ChampionRunID
			bestScore = w.MaxScore
		}
	}
	summary.BestRunID = best
	return summary, nil
}

func (c *Client) Wirings(ctx context.Context) ([]model.WiringRecord, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	diagrams := p.WiringDiagrams()
	out := make([]model.WiringRecord, 0, len(diagrams))
	for _, d := range diagrams {
		out = append(out, wiring.ToRecord(d))
	}
	return out, nil
}

func (c *Client) Table(ctx context.Context) (TableSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return TableSummary{}, err
	}
	table := p.FamilyTable()
	if table == nil {
		return TableSummary{}, errors.New("family table is not loaded")
	}

	entries := table.Entries()
	families := make([]TableFamily, 0, len(entries))
	for _, entry := range entries {
		families = append(families, TableFamily{
			Bucket:       entry.Bucket,
			HexagramID:   entry.HexagramID,
			HexagramName: entry.HexagramName,
		})
	}
	return TableSummary{Version: table.Version(), Families: families}, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}
