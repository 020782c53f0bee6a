package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"proteus/internal/exotype"
	"proteus/internal/metrics"
	"proteus/internal/mmca"
	"proteus/internal/model"
	"proteus/internal/replay"
	"proteus/internal/sigil"
	"proteus/internal/storage"
	"proteus/internal/wiring"
)

// Defaults applied by RunSimulation when a field is left unset. Seed and
// kernel are taken as-is: zero is a legal seed and the empty kernel name
// selects the reference kernel.
const (
	DefaultAlphabetSymbols = sigil.QuadSymbols
	DefaultGenotypeLength  = 64
	DefaultGenerations     = 120
	DefaultMetricsWidth    = 12
	DefaultMetricsStride   = 6
	DefaultExotypeWindow   = 8
	DefaultExotypeCadence  = 4
)

type Config struct {
	Store          storage.Store
	Wirings        []wiring.Diagram
	FamilyTable    *exotype.Table
	SupportModules []SupportModule
}

type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// SimulationConfig describes one run. The zero value of most fields means
// "use the default"; the wiring must be named explicitly, either by
// registry id or as an inline record.
type SimulationConfig struct {
	RunID string

	// Group tags the supervised task, letting a batch of related runs be
	// cancelled together.
	Group string

	AlphabetSymbols  string
	GenotypeLength   int
	InitialGenotype  string
	InitialPhenotype string
	Generations      int
	Seed             int64
	Kernel           string

	WiringID string
	Wiring   *model.WiringRecord

	// ExotypeWiringIDs enables contextual wiring selection; empty leaves
	// the base wiring in charge for the whole run.
	ExotypeWiringIDs []string
	ExotypeWindow    int
	ExotypeCadence   int

	MetricsWidth  int
	MetricsStride int

	// FamilySamples > 0 samples the exotype family distribution from the
	// completed history and persists it alongside the run.
	FamilySamples int

	Sink func(mmca.TickEvent)
}

// SimulationResult is the in-memory outcome of one persisted run.
type SimulationResult struct {
	RunID        string
	Kernel       string
	Score        float64
	FinalHash    string
	Regimes      map[string]int
	Record       model.RunRecord
	Windows      []model.MetricsWindowRecord
	Distribution *model.ExotypeDistribution
}

// FamilySampleConfig drives offline exotype distribution sampling over a
// stored run.
type FamilySampleConfig struct {
	RunID   string
	Window  int
	Samples int
	Seed    int64
}

// Polis owns the shared read-only inputs of every run (wiring registry,
// family table), the store, and the supervisor tracking in-flight runs.
type Polis struct {
	store storage.Store
	runs  *Supervisor

	mu sync.RWMutex

	wirings        map[string]wiring.Diagram
	table          *exotype.Table
	supportModules map[string]SupportModule
	started        bool
	lastStopReason StopReason

	config Config
}

var (
	defaultPolisMu sync.Mutex
	defaultPolis   *Polis
)

func NewPolis(cfg Config) *Polis {
	return &Polis{
		store:          cfg.Store,
		runs:           NewSupervisor(),
		wirings:        make(map[string]wiring.Diagram),
		supportModules: make(map[string]SupportModule),
		config:         cfg,
		lastStopReason: StopReasonNormal,
	}
}

func StartDefault(ctx context.Context, cfg Config) (*Polis, error) {
	defaultPolisMu.Lock()
	defer defaultPolisMu.Unlock()

	if defaultPolis != nil && defaultPolis.Started() {
		return defaultPolis, nil
	}

	p := NewPolis(cfg)
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	defaultPolis = p
	return defaultPolis, nil
}

func Default() (*Polis, bool) {
	defaultPolisMu.Lock()
	p := defaultPolis
	defaultPolisMu.Unlock()

	if p == nil || !p.Started() {
		return nil, false
	}
	return p, true
}

func StopDefault(reason StopReason) error {
	defaultPolisMu.Lock()
	p := defaultPolis
	defaultPolisMu.Unlock()
	if p == nil {
		return nil
	}
	if err := p.StopWithReason(reason); err != nil {
		return err
	}
	defaultPolisMu.Lock()
	if defaultPolis == p {
		defaultPolis = nil
	}
	defaultPolisMu.Unlock()
	return nil
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}

	startedModules := make([]SupportModule, 0, len(p.config.SupportModules))
	for i, module := range p.config.SupportModules {
		if module == nil {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return fmt.Errorf("support module is nil at index %d", i)
		}
		name := module.Name()
		if name == "" {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return fmt.Errorf("support module name is required at index %d", i)
		}
		if _, exists := p.supportModules[name]; exists {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return fmt.Errorf("duplicate support module: %s", name)
		}
		if err := module.Start(ctx); err != nil {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return fmt.Errorf("start support module %s: %w", name, err)
		}
		p.supportModules[name] = module
		startedModules = append(startedModules, module)
	}

	diagrams := p.config.Wirings
	if len(diagrams) == 0 {
		diagrams = wiring.DefaultCatalog()
	}
	for _, d := range diagrams {
		if err := wiring.Validate(d); err != nil {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return err
		}
		if _, exists := p.wirings[d.ID]; exists {
			stopSupportModules(ctx, startedModules)
			p.supportModules = make(map[string]SupportModule)
			p.wirings = make(map[string]wiring.Diagram)
			p.table = nil
			return fmt.Errorf("duplicate wiring: %s", d.ID)
		}
		p.wirings[d.ID] = d
	}

	p.table = p.config.FamilyTable
	if p.table == nil {
		p.table = exotype.DefaultTable()
	}

	p.started = true
	return nil
}

func (p *Polis) Create(ctx context.Context) error {
	return p.Init(ctx)
}

func (p *Polis) Reset(ctx context.Context) error {
	_ = p.StopWithReason(StopReasonShutdown)
	if resetter, ok := p.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return p.Init(ctx)
}

func (p *Polis) Stop() {
	_ = p.StopWithReason(StopReasonNormal)
}

func (p *Polis) Shutdown() {
	_ = p.StopWithReason(StopReasonShutdown)
}

func (p *Polis) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if !isValidStopReason(reason) {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	// Cancelling runs blocks until every machine unwinds, so it happens
	// before the state lock is taken.
	p.runs.CancelAll()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, module := range p.supportModules {
		if withReason, ok := module.(reasonAwareSupportModule); ok {
			_ = withReason.StopWithReason(context.Background(), reason)
		} else {
			_ = module.Stop(context.Background())
		}
	}

	p.started = false
	p.lastStopReason = reason
	p.supportModules = make(map[string]SupportModule)
	p.wirings = make(map[string]wiring.Diagram)
	p.table = nil
	return nil
}

// RegisterWiring adds a validated diagram to the registry. Re-registering
// an id replaces the previous diagram.
func (p *Polis) RegisterWiring(d wiring.Diagram) error {
	if err := wiring.Validate(d); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	p.wirings[d.ID] = d
	return nil
}

func (p *Polis) WiringByID(id string) (wiring.Diagram, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	d, ok := p.wirings[id]
	return d, ok
}

func (p *Polis) RegisteredWirings() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.wirings))
	for name := range p.wirings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WiringDiagrams snapshots the registry, sorted by id.
func (p *Polis) WiringDiagrams() []wiring.Diagram {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.wirings))
	for id := range p.wirings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]wiring.Diagram, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.wirings[id])
	}
	return out
}

func (p *Polis) FamilyTable() *exotype.Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table
}

func (p *Polis) ActiveSupportModules() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.supportModules))
	for name := range p.supportModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) LastStopReason() StopReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastStopReason
}

// ActiveRuns lists the run ids currently executing.
func (p *Polis) ActiveRuns() []string {
	return p.runs.Active()
}

func (p *Polis) RunStatus(runID string) (TaskStatus, bool) {
	return p.runs.Status(runID)
}

func (p *Polis) RunStatuses() []TaskStatus {
	return p.runs.Statuses()
}

// CancelRun aborts an in-flight run. A cancelled run fails; it cannot be
// resumed.
func (p *Polis) CancelRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	status, ok := p.runs.Status(runID)
	if !ok || (status.State != TaskInitialized && status.State != TaskRunning) {
		return fmt.Errorf("run not active: %s", runID)
	}
	p.runs.Cancel(runID)
	return nil
}

// RunSimulation executes one run to completion and persists its record,
// metrics windows, and (when sampled) family distribution. The machine
// executes under the run supervisor, so a platform stop aborts it.
func (p *Polis) RunSimulation(ctx context.Context, cfg SimulationConfig) (SimulationResult, error) {
	if !p.Started() {
		return SimulationResult{}, fmt.Errorf("polis is not initialized")
	}
	cfg = normalizeSimulationConfig(cfg)

	rc, err := p.buildRunConfig(cfg)
	if err != nil {
		return SimulationResult{}, err
	}
	available := p.WiringDiagrams()
	table := p.FamilyTable()
	mcfg, err := mmca.ResolveConfig(rc, available, table)
	if err != nil {
		return SimulationResult{}, err
	}
	mcfg.Sink = cfg.Sink
	machine, err := mmca.NewMachine(mcfg)
	if err != nil {
		return SimulationResult{}, err
	}
	// The record echoes resolved values so a replay needs nothing else.
	rc.GenotypeLength = mcfg.Length
	rc.Kernel = machine.KernelName()

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := p.runs.Launch(ctx, runID, cfg.Group, machine.Run); err != nil {
		return SimulationResult{}, err
	}
	status, ok := p.runs.Wait(runID)
	if !ok {
		return SimulationResult{}, fmt.Errorf("run %s left no status", runID)
	}
	if status.State != TaskCompleted {
		return SimulationResult{}, fmt.Errorf("run %s failed: %s", runID, status.Error)
	}

	res := machine.Result()
	windows, err := metrics.WindowedMacroFeatures(mcfg.Alphabet, res.Genotypes, metrics.Params{
		Width:  cfg.MetricsWidth,
		Stride: cfg.MetricsStride,
	})
	if err != nil {
		return SimulationResult{}, err
	}
	score := metrics.Score(windows)
	regimes := metrics.Summarize(windows)
	windowRecs := metrics.ToRecords(windows)

	rec := mmca.BuildRunRecord(runID, time.Now(), rc, res)
	rec.VersionedRecord = storage.Stamp()
	rec.Score = score
	rec.Regimes = regimes

	wrec := rc.Wiring
	wrec.VersionedRecord = storage.Stamp()
	if err := p.store.SaveWiring(ctx, wrec); err != nil {
		return SimulationResult{}, err
	}
	if err := p.store.SaveRunRecord(ctx, *rec); err != nil {
		return SimulationResult{}, err
	}
	if err := p.store.SaveMetrics(ctx, runID, windowRecs); err != nil {
		return SimulationResult{}, err
	}

	result := SimulationResult{
		RunID:     runID,
		Kernel:    machine.KernelName(),
		Score:     score,
		FinalHash: res.FinalHash,
		Regimes:   regimes,
		Record:    *rec,
		Windows:   windowRecs,
	}

	if cfg.FamilySamples > 0 {
		width := cfg.ExotypeWindow
		rng := rand.New(rand.NewSource(cfg.Seed))
		counts, err := exotype.SampleDistribution(mcfg.Alphabet, table, res.Genotypes, res.Phenotypes, rng, width, cfg.FamilySamples)
		if err != nil {
			return SimulationResult{}, err
		}
		dist := model.ExotypeDistribution{
			VersionedRecord: storage.Stamp(),
			RunID:           runID,
			TableVersion:    table.Version(),
			WindowWidth:     width,
			Samples:         cfg.FamilySamples,
			Counts:          counts,
		}
		if err := p.store.SaveDistribution(ctx, dist); err != nil {
			return SimulationResult{}, err
		}
		result.Distribution = &dist
	}

	return result, nil
}

// ReplayRun re-executes a stored run and checks per-tick hashes. Empty
// ticks means every tick.
func (p *Polis) ReplayRun(ctx context.Context, runID string, ticks []int) (replay.Report, error) {
	if !p.Started() {
		return replay.Report{}, fmt.Errorf("polis is not initialized")
	}
	rec, ok, err := p.store.GetRunRecord(ctx, runID)
	if err != nil {
		return replay.Report{}, err
	}
	if !ok {
		return replay.Report{}, fmt.Errorf("run not found: %s", runID)
	}
	return replay.Check(ctx, &rec, ticks, p.WiringDiagrams(), p.FamilyTable())
}

// CrossKernelReplay re-executes a stored run under every kernel and
// compares final hashes.
func (p *Polis) CrossKernelReplay(ctx context.Context, runID string) (replay.KernelReport, error) {
	if !p.Started() {
		return replay.KernelReport{}, fmt.Errorf("polis is not initialized")
	}
	rec, ok, err := p.store.GetRunRecord(ctx, runID)
	if err != nil {
		return replay.KernelReport{}, err
	}
	if !ok {
		return replay.KernelReport{}, fmt.Errorf("run not found: %s", runID)
	}
	return replay.CrossKernelCheck(ctx, &rec, p.WiringDiagrams(), p.FamilyTable())
}

// MetricsForRun recomputes windowed metrics for a stored run at the given
// geometry. Zero params return the windows persisted with the run.
func (p *Polis) MetricsForRun(ctx context.Context, runID string, params metrics.Params) ([]model.MetricsWindowRecord, error) {
	if !p.Started() {
		return nil, fmt.Errorf("polis is not initialized")
	}
	if params.Width == 0 && params.Stride == 0 {
		windows, ok, err := p.store.GetMetrics(ctx, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("metrics not found for run: %s", runID)
		}
		return windows, nil
	}

	rec, ok, err := p.store.GetRunRecord(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	a, err := sigil.NewAlphabet(rec.Config.AlphabetSymbols)
	if err != nil {
		return nil, err
	}
	genos, _, err := mmca.HistoryFromRecord(&rec)
	if err != nil {
		return nil, err
	}
	windows, err := metrics.WindowedMacroFeatures(a, genos, params)
	if err != nil {
		return nil, err
	}
	return metrics.ToRecords(windows), nil
}

// SampleFamilies draws an exotype family frequency distribution from a
// stored run's history and persists it. Repeatable for a given seed.
func (p *Polis) SampleFamilies(ctx context.Context, cfg FamilySampleConfig) (model.ExotypeDistribution, error) {
	if !p.Started() {
		return model.ExotypeDistribution{}, fmt.Errorf("polis is not initialized")
	}
	if cfg.Samples <= 0 {
		return model.ExotypeDistribution{}, model.NewConfigError("samples", "must be >= 1, got %d", cfg.Samples)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultExotypeWindow
	}

	rec, ok, err := p.store.GetRunRecord(ctx, cfg.RunID)
	if err != nil {
		return model.ExotypeDistribution{}, err
	}
	if !ok {
		return model.ExotypeDistribution{}, fmt.Errorf("run not found: %s", cfg.RunID)
	}
	a, err := sigil.NewAlphabet(rec.Config.AlphabetSymbols)
	if err != nil {
		return model.ExotypeDistribution{}, err
	}
	genos, phenos, err := mmca.HistoryFromRecord(&rec)
	if err != nil {
		return model.ExotypeDistribution{}, err
	}

	table := p.FamilyTable()
	rng := rand.New(rand.NewSource(cfg.Seed))
	counts, err := exotype.SampleDistribution(a, table, genos, phenos, rng, cfg.Window, cfg.Samples)
	if err != nil {
		return model.ExotypeDistribution{}, err
	}
	dist := model.ExotypeDistribution{
		VersionedRecord: storage.Stamp(),
		RunID:           cfg.RunID,
		TableVersion:    table.Version(),
		WindowWidth:     cfg.Window,
		Samples:         cfg.Samples,
		Counts:          counts,
	}
	if err := p.store.SaveDistribution(ctx, dist); err != nil {
		return model.ExotypeDistribution{}, err
	}
	return dist, nil
}

func normalizeSimulationConfig(cfg SimulationConfig) SimulationConfig {
	if cfg.AlphabetSymbols == "" {
		cfg.AlphabetSymbols = DefaultAlphabetSymbols
	}
	if cfg.GenotypeLength <= 0 && cfg.InitialGenotype == "" {
		cfg.GenotypeLength = DefaultGenotypeLength
	}
	if cfg.Generations <= 0 {
		cfg.Generations = DefaultGenerations
	}
	if cfg.MetricsWidth <= 0 {
		cfg.MetricsWidth = DefaultMetricsWidth
	}
	if cfg.MetricsStride <= 0 {
		cfg.MetricsStride = DefaultMetricsStride
	}
	if len(cfg.ExotypeWiringIDs) > 0 || cfg.FamilySamples > 0 {
		if cfg.ExotypeWindow <= 0 {
			cfg.ExotypeWindow = DefaultExotypeWindow
		}
		if cfg.ExotypeCadence <= 0 {
			cfg.ExotypeCadence = DefaultExotypeCadence
		}
	}
	return cfg
}

func (p *Polis) buildRunConfig(cfg SimulationConfig) (model.RunConfig, error) {
	var wrec model.WiringRecord
	switch {
	case cfg.Wiring != nil:
		wrec = *cfg.Wiring
	case cfg.WiringID != "":
		d, ok := p.WiringByID(cfg.WiringID)
		if !ok {
			return model.RunConfig{}, model.NewConfigError("wiring", "not registered: %s", cfg.WiringID)
		}
		wrec = wiring.ToRecord(d)
	default:
		return model.RunConfig{}, model.NewConfigError("wiring", "id is required")
	}

	rc := model.RunConfig{
		AlphabetSymbols:  cfg.AlphabetSymbols,
		GenotypeLength:   cfg.GenotypeLength,
		InitialGenotype:  cfg.InitialGenotype,
		InitialPhenotype: cfg.InitialPhenotype,
		Generations:      cfg.Generations,
		Seed:             cfg.Seed,
		Kernel:           cfg.Kernel,
		Wiring:           wrec,
	}
	if len(cfg.ExotypeWiringIDs) > 0 {
		rc.Exotype = &model.ExotypeSpecRecord{
			TableVersion: p.FamilyTable().Version(),
			WindowWidth:  cfg.ExotypeWindow,
			CadenceTicks: cfg.ExotypeCadence,
			WiringIDs:    append([]string(nil), cfg.ExotypeWiringIDs...),
		}
	}
	return rc, nil
}

type reasonAwareSupportModule interface {
	SupportModule
	StopWithReason(ctx context.Context, reason StopReason) error
}

func isValidStopReason(reason StopReason) bool {
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
		return true
	default:
		return false
	}
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}
