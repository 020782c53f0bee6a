package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"proteus/internal/exotype"
	"proteus/internal/mmca"
	"proteus/internal/model"
	"proteus/internal/platform"
	"proteus/internal/stats"
	"proteus/internal/storage"
	"proteus/internal/wiring"
	proteusapi "proteus/pkg/proteus"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

// version is overridden by the release build via -ldflags.
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "replay":
		return runReplay(ctx, args[1:])
	case "metrics":
		return runMetrics(ctx, args[1:])
	case "sample":
		return runSample(ctx, args[1:])
	case "events":
		return runEvents(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "wirings":
		return runWirings(ctx, args[1:])
	case "table":
		return runTable(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "version":
		fmt.Printf("proteusctl version=%s\n", version)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	polis := platform.NewPolis(platform.Config{Store: store})
	if err := polis.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s wirings=%d table=%s\n",
		*storeKind, len(polis.RegisteredWirings()), polis.FamilyTable().Version())
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	polis := platform.NewPolis(platform.Config{Store: store})
	if err := polis.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	profilePath := fs.String("profile", "", "run profile path (.yaml/.yml/.json); set flags override profile fields")
	runID := fs.String("run-id", "", "explicit run id (empty generates one)")
	alphabet := fs.String("alphabet", platform.DefaultAlphabetSymbols, "genotype alphabet symbols")
	length := fs.Int("length", platform.DefaultGenotypeLength, "genotype length for random initialization")
	genotype := fs.String("genotype", "", "explicit initial genotype tape (overrides -length)")
	phenotype := fs.String("phenotype", "", "explicit initial phenotype bit tape")
	gens := fs.Int("gens", platform.DefaultGenerations, "generations to simulate")
	seed := fs.Int64("seed", 0, "rng seed")
	kernel := fs.String("kernel", mmca.KernelReference, "update kernel: reference|indexed")
	wiringID := fs.String("wiring", "", "registered wiring id (default creative-majority)")
	wiringFile := fs.String("wiring-file", "", "inline wiring artifact path (.yaml/.yml/.json)")
	exoWirings := fs.String("exo-wirings", "", "comma-separated wiring ids for exotype-driven switching")
	exoWindow := fs.Int("exo-window", platform.DefaultExotypeWindow, "exotype classification window")
	exoCadence := fs.Int("exo-cadence", platform.DefaultExotypeCadence, "exotype reclassification cadence in ticks")
	width := fs.Int("width", platform.DefaultMetricsWidth, "metrics window width")
	stride := fs.Int("stride", platform.DefaultMetricsStride, "metrics window stride")
	samples := fs.Int("samples", 0, "family distribution sample count (0 disables)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	req := proteusapi.RunRequest{
		RunID:            *runID,
		Alphabet:         *alphabet,
		GenotypeLength:   *length,
		InitialGenotype:  *genotype,
		InitialPhenotype: *phenotype,
		Generations:      *gens,
		Seed:             *seed,
		Kernel:           *kernel,
		WiringID:         *wiringID,
		ExotypeWiringIDs: splitList(*exoWirings),
		ExotypeWindow:    *exoWindow,
		ExotypeCadence:   *exoCadence,
		MetricsWidth:     *width,
		MetricsStride:    *stride,
		FamilySamples:    *samples,
	}
	if *profilePath != "" {
		profileReq, err := loadRunProfile(*profilePath)
		if err != nil {
			return err
		}
		overlayRunFlags(&profileReq, req, setFlags)
		req = profileReq
	}
	if *wiringFile != "" {
		d, err := wiring.LoadDiagram(*wiringFile)
		if err != nil {
			return err
		}
		rec := wiring.ToRecord(d)
		req.WiringID = ""
		req.Wiring = &rec
	}

	client, err := proteusapi.New(proteusapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		type runView struct {
			RunID        string                     `json:"run_id"`
			ArtifactsDir string                     `json:"artifacts_dir"`
			Kernel       string                     `json:"kernel"`
			WiringID     string                     `json:"wiring_id"`
			Generations  int                        `json:"generations"`
			Score        float64                    `json:"score"`
			FinalHash    string                     `json:"final_hash"`
			Windows      int                        `json:"windows"`
			Regimes      map[string]int             `json:"regimes,omitempty"`
			Distribution *model.ExotypeDistribution `json:"distribution,omitempty"`
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runView{
			RunID:        summary.RunID,
			ArtifactsDir: summary.ArtifactsDir,
			Kernel:       summary.Kernel,
			WiringID:     summary.WiringID,
			Generations:  summary.Generations,
			Score:        summary.Score,
			FinalHash:    summary.FinalHash,
			Windows:      summary.Windows,
			Regimes:      summary.Regimes,
			Distribution: summary.Distribution,
		})
	}

	fmt.Printf("run completed run_id=%s wiring=%s kernel=%s gens=%d\n",
		summary.RunID, summary.WiringID, summary.Kernel, summary.Generations)
	fmt.Printf("score=%.6f final_hash=%s windows=%d\n", summary.Score, summary.FinalHash, summary.Windows)
	for _, regime := range sortedKeys(summary.Regimes) {
		fmt.Printf("regime=%s windows=%d\n", regime, summary.Regimes[regime])
	}
	if summary.Distribution != nil {
		fmt.Printf("families sampled=%s distinct=%d table=%s\n",
			displayCount(summary.Distribution.Samples),
			len(summary.Distribution.Counts),
			summary.Distribution.TableVersion)
	}
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepID := fs.String("sweep-id", "", "explicit sweep id (empty generates one)")
	notes := fs.String("notes", "", "free-form notes stored with the experiment")
	wirings := fs.String("wirings", "", "comma-separated wiring ids (empty sweeps every registered wiring)")
	seedStart := fs.Int64("seed-start", 0, "first seed of the sweep")
	seeds := fs.Int("seeds", 1, "seeds per wiring")
	workers := fs.Int("workers", 0, "parallel runs (0 uses the platform default)")
	alphabet := fs.String("alphabet", platform.DefaultAlphabetSymbols, "genotype alphabet symbols")
	length := fs.Int("length", platform.DefaultGenotypeLength, "genotype length")
	gens := fs.Int("gens", platform.DefaultGenerations, "generations per run")
	kernel := fs.String("kernel", mmca.KernelReference, "update kernel: reference|indexed")
	width := fs.Int("width", platform.DefaultMetricsWidth, "metrics window width")
	stride := fs.Int("stride", platform.DefaultMetricsStride, "metrics window stride")
	scoreGoal := fs.Float64("score-goal", 0, "mark runs at or above this score as hits (0 disables)")
	reportName := fs.String("report-name", "report", "file stem for the sweep report artifacts")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit sweep summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var goal *float64
	if *scoreGoal != 0 {
		goal = scoreGoal
	}

	client, err := proteusapi.New(proteusapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Sweep(ctx, proteusapi.SweepRequest{
		SweepID:        *sweepID,
		Notes:          *notes,
		WiringIDs:      splitList(*wirings),
		SeedStart:      *seedStart,
		SeedCount:      *seeds,
		Workers:        *workers,
		Alphabet:       *alphabet,
		GenotypeLength: *length,
		Generations:    *gens,
		Kernel:         *kernel,
		MetricsWidth:   *width,
		MetricsStride:  *stride,
		ScoreGoal:      goal,
		ReportName:     *reportName,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		type sweepView struct {
			SweepID       string   `json:"sweep_id"`
			ReportDir     string   `json:"report_dir"`
			TotalRuns     int      `json:"total_runs"`
			CompletedRuns int      `json:"completed_runs"`
			HitRate       float64  `json:"hit_rate"`
			AvgScore      float64  `json:"avg_score"`
			MaxScore      float64  `json:"max_score"`
			BestRunID     string   `json:"best_run_id"`
			GraphPaths    []string `json:"graph_paths,omitempty"`
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sweepView{
			SweepID:       summary.SweepID,
			ReportDir:     summary.ReportDir,
			TotalRuns:     summary.TotalRuns,
			CompletedRuns: summary.CompletedRuns,
			HitRate:       summary.HitRate,
			AvgScore:      summary.AvgScore,
			MaxScore:      summary.MaxScore,
			BestRunID:     summary.BestRunID,
			GraphPaths:    summary.GraphPaths,
		})
	}

	fmt.Printf("sweep completed sweep_id=%s runs=%d completed=%d\n",
		summary.SweepID, summary.TotalRuns, summary.CompletedRuns)
	fmt.Printf("hit_rate=%.4f avg_score=%.6f max_score=%.6f best_run_id=%s\n",
		summary.HitRate, summary.AvgScore, summary.MaxScore, summary.BestRunID)
	for _, path := range summary.GraphPaths {
		fmt.Printf("graph=%s\n", path)
	}
	fmt.Printf("report_dir=%s\n", summary.ReportDir)
	return nil
}

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "replay the most recent run from the run index")
	ticks := fs.String("ticks", "", "comma-separated tick subset to verify (empty checks every tick)")
	kernels := fs.Bool("kernels", false, "re-run the record under every kernel instead of tick verification")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit replay report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("replay requires --run-id or --latest")
	}

	client, err := proteusapi.New(proteusapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *kernels {
		report, err := client.CrossKernel(ctx, proteusapi.KernelCheckRequest{RunID: *runID, Latest: *latest})
		if err != nil {
			return err
		}
		if *jsonOut {
			type kernelRunView struct {
				Kernel    string `json:"kernel"`
				FinalHash string `json:"final_hash"`
				Match     bool   `json:"match"`
			}
			type kernelView struct {
				RunID      string          `json:"run_id"`
				RecordHash string          `json:"record_hash"`
				Runs       []kernelRunView `json:"runs"`
				Pass       bool            `json:"pass"`
			}
			view := kernelView{RunID: report.RunID, RecordHash: report.RecordHash, Pass: report.Pass}
			for _, r := range report.Runs {
				view.Runs = append(view.Runs, kernelRunView{Kernel: r.Kernel, FinalHash: r.FinalHash, Match: r.Match})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		fmt.Printf("cross-kernel run_id=%s record_hash=%s pass=%t\n", report.RunID, report.RecordHash, report.Pass)
		for _, r := range report.Runs {
			fmt.Printf("kernel=%s final_hash=%s match=%t\n", r.Kernel, r.FinalHash, r.Match)
		}
		return nil
	}

	tickList, err := parseTickList(*ticks)
	if err != nil {
		return err
	}
	report, err := client.Replay(ctx, proteusapi.ReplayRequest{RunID: *runID, Latest: *latest, Ticks: tickList})
	if err != nil {
		return err
	}
	if *jsonOut {
		type mismatchView struct {
			Tick     int    `json:"tick"`
			WantHash string `json:"want_hash"`
			GotHash  string `json:"got_hash"`
		}
		type replayView struct {
			RunID            string         `json:"run_id"`
			Kernel           string         `json:"kernel"`
			TicksChecked     int            `json:"ticks_checked"`
			Mismatches       []mismatchView `json:"mismatches,omitempty"`
			RecordConsistent bool           `json:"record_consistent"`
			Pass             bool           `json:"pass"`
		}
		view := replayView{
			RunID:            report.RunID,
			Kernel:           report.Kernel,
			TicksChecked:     report.TicksChecked,
			RecordConsistent: report.RecordConsistent,
			Pass:             report.Pass,
		}
		for _, m := range report.Mismatches {
			view.Mismatches = append(view.Mismatches, mismatchView{Tick: m.Tick, WantHash: m.WantHash, GotHash: m.GotHash})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	fmt.Printf("replay run_id=%s kernel=%s ticks_checked=%d record_consistent=%t pass=%t\n",
		report.RunID, report.Kernel, report.TicksChecked, report.RecordConsistent, report.Pass)
	for _, m := range report.Mismatches {
		fmt.Printf("mismatch tick=%d want=%s got=%s\n", m.Tick, m.WantHash, m.GotHash)
	}
	return nil
}

func runMetrics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	width := fs.Int("width", 0, "recompute with this window width (0 reads stored windows)")
	stride := fs.Int("stride", 0, "recompute with this window stride (0 reads stored windows)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit windows as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("metrics requires --run-id or --latest")
	}
	if *latest {
		entries, err := stats.ListRunIndex(runsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available")
		}
		*runID = entries[0].RunID
	}

	client, err := proteusapi.New(proteusapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	windows, err := client.Metrics(ctx, proteusapi.MetricsRequest{RunID: *runID, Width: *width, Stride: *stride})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(windows)
	}
	fmt.Printf("metrics run_id=%s windows=%d\n", *runID, len(windows))
	for i, w := range windows {
		fmt.Printf("window=%d span=[%d,%d) pressure=%.4f selectivity=%.4f structure=%.4f activity=%.4f regime=%s\n",
			i, w.WStart, w.WEnd, w.Pressure, w.Selectivity, w.Structure, w.Activity, w.Regime)
	}
	return nil
}

func runSample(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	window := fs.Int("window", platform.DefaultExotypeWindow, "classification window width")
	samples := fs.Int("samples", 100, "number of random window positions to classify")
	seed := fs.Int64("seed", 0, "sampler rng seed")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "proteus.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit distribution as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("sample requires --run-id or --latest")
	}

	client, err := proteusapi.New(proteusapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	dist, err := client.SampleExotype(ctx, proteusapi.SampleRequest{
		RunID:   *runID,
		Latest:  *latest,
		Window:  *window,
		Samples: *samples,
		Seed:    *seed,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dist)
	}
	fmt.Printf("sampled run_id=%s samples=%s window=%d table=%s\n",
		dist.RunID, displayCount(dist.Samples), dist.WindowWidth, dist.TableVersion)
	families := make([]int, 0, len(dist.Counts))
	for family := range dist.Counts {
		families = append(families, family)
	}
	sort.Ints(families)
	for _, family := range families {
		name, err := exotype.HexagramName(family)
		if err != nil {
			return err
		}
		fmt.Printf("family=%d hexagram=%q count=%d\n", family, name, dist.Counts[family])
	}
	return nil
}

func runEvents(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	limit := fs.Int("limit", 50, "max events to print (0 prints all)")
	jsonOut := fs.Bool("json", false, "emit events as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("events requires --run-id or --latest")
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}
	if *latest {
		entries, err := stats.ListRunIndex(runsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available")
		}
		*runID = entries[0].RunID
	}

	rec, ok, err := stats.ReadRunRecordArtifact(runsDir, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run artifacts not found for run id: %s", *runID)
	}
	events, err := stats.RunEvents(rec)
	if err != nil {
		return err
	}
	total := len(events)
	if *limit > 0 && len(events) > *limit {
		events = events[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	fmt.Printf("events run_id=%s total=%s shown=%d\n", *runID, displayCount(total), len(events))
	for _, e := range events {
		fmt.Printf("t=%d cell=%d sigil=%s exotype=%d\n", e.T, e.Cell, e.Sigil, e.Exotype)
	}
	return nil
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	showFamilies := fs.Bool("families", false, "annotate rows with sampled distinct exotype families")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(runsDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *jsonOut {
		type runsItem struct {
			stats.RunIndexEntry
			Families *int `json:"families,omitempty"`
		}
		items := make([]runsItem, 0, len(entries))
		for _, e := range entries {
			item := runsItem{RunIndexEntry: e}
			if *showFamilies {
				dist, ok, err := stats.ReadDistributionArtifact(runsDir, e.RunID)
				if err != nil {
					return err
				}
				if ok {
					n := len(dist.Counts)
					item.Families = &n
				}
			}
			items = append(items, item)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	for _, e := range entries {
		familiesDisplay := ""
		if *showFamilies {
			dist, ok, err := stats.ReadDistributionArtifact(runsDir, e.RunID)
			if err != nil {
				return err
			}
			if ok {
				familiesDisplay = fmt.Sprintf(" families=%d", len(dist.Counts))
			} else {
				familiesDisplay = " families=n/a"
			}
		}
		fmt.Printf("run_id=%s created=%s wiring=%s kernel=%s gens=%d seed=%d score=%.6f hash=%s%s\n",
			e.RunID, displayTime(e.CreatedAtUTC), e.WiringID, e.Kernel,
			e.Generations, e.Seed, e.Score, e.FinalHash, familiesDisplay)
	}
	return nil
}

func runWirings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wirings", flag.ContinueOnError)
	outDir := fs.String("out", "", "also save each wiring as a YAML artifact under this directory")
	jsonOut := fs.Bool("json", false, "emit wirings as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteusapi.New(proteusapi.Options{RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Wirings(ctx)
	if err != nil {
		return err
	}

	if *outDir != "" {
		for _, rec := range records {
			d, err := wiring.FromRecord(rec)
			if err != nil {
				return err
			}
			if err := wiring.SaveDiagram(filepath.Join(*outDir, rec.ID+".yaml"), d); err != nil {
				return err
			}
		}
		fmt.Printf("saved wirings=%d to=%s\n", len(records), filepath.Clean(*outDir))
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	for _, rec := range records {
		fmt.Printf("wiring=%s hexagram=%d name=%q mix=%s threshold=%.2f update_p=%.2f\n",
			rec.ID, rec.HexagramID, rec.HexagramName, rec.MixMode, rec.MatchThreshold, rec.UpdateProbability)
	}
	return nil
}

func runTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("table", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "max families to print (0 prints all 64)")
	jsonOut := fs.Bool("json", false, "emit table as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := proteusapi.New(proteusapi.Options{RunsDir: runsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Table(ctx)
	if err != nil {
		return err
	}
	families := summary.Families
	if *limit > 0 && len(families) > *limit {
		families = families[:*limit]
	}

	if *jsonOut {
		type familyView struct {
			Bucket       int    `json:"bucket"`
			HexagramID   int    `json:"hexagram_id"`
			HexagramName string `json:"hexagram_name"`
		}
		type tableView struct {
			Version  string       `json:"version"`
			Families []familyView `json:"families"`
		}
		view := tableView{Version: summary.Version}
		for _, f := range families {
			view.Families = append(view.Families, familyView{Bucket: f.Bucket, HexagramID: f.HexagramID, HexagramName: f.HexagramName})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	fmt.Printf("table version=%s families=%d\n", summary.Version, len(summary.Families))
	for _, f := range families {
		fmt.Printf("bucket=%d hexagram=%d name=%q\n", f.Bucket, f.HexagramID, f.HexagramName)
	}
	return nil
}

func runExport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	withEvents := fs.Bool("events", false, "also derive and write run_events.jsonl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}
	if *latest {
		entries, err := stats.ListRunIndex(runsDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available to export")
		}
		*runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(runsDir, *runID, *outDir)
	if err != nil {
		return err
	}

	if *withEvents {
		rec, ok, err := stats.ReadRunRecordArtifact(runsDir, *runID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("run artifacts not found for run id: %s", *runID)
		}
		events, err := stats.RunEvents(rec)
		if err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(exportedDir, "run_events.jsonl"))
		if err != nil {
			return err
		}
		if err := stats.WriteRunEvents(f, events); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("events written=%s\n", displayCount(len(events)))
	}

	fmt.Printf("exported run_id=%s to=%s size=%s\n",
		*runID, filepath.Clean(exportedDir), displayBytes(dirSize(exportedDir)))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: proteusctl <init|reset|run|sweep|replay|metrics|sample|events|runs|wirings|table|export|version> [flags]", msg)
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseTickList(value string) ([]int, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		tick, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid tick %q: %w", part, err)
		}
		out = append(out, tick)
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
