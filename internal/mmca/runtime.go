package mmca

import (
	"context"
	"fmt"
	"math/rand"

	"proteus/internal/exotype"
	"proteus/internal/model"
	"proteus/internal/sigil"
	"proteus/internal/wiring"
)

// State names a machine's lifecycle position. There is no pause state: a
// run either completes or fails.
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// TickEvent reports one completed generation to an observer.
type TickEvent struct {
	Tick       int
	Genotype   sigil.Genotype
	Phenotype  sigil.Phenotype
	HexagramID int
	Hash       string
}

// Config is the fully resolved input of one run. Initial tapes are
// optional; absent tapes are drawn from the run's rng stream, genotype
// first, so the draw order is part of the determinism contract.
type Config struct {
	Alphabet    sigil.Alphabet
	Length      int
	Generations int
	Seed        int64
	Kernel      string
	Wiring      wiring.Diagram
	Exotype     *exotype.Binding

	InitialGenotype  sigil.Genotype
	InitialPhenotype sigil.Phenotype

	// Sink, when set, observes each appended snapshot.
	Sink func(TickEvent)
}

func (c Config) validate() error {
	if c.Alphabet.Size() < 2 {
		return model.NewConfigError("alphabet", "need at least 2 symbols, got %d", c.Alphabet.Size())
	}
	if c.Length < 1 {
		return model.NewConfigError("genotype", "length must be >= 1, got %d", c.Length)
	}
	if c.Generations < 0 {
		return model.NewConfigError("generations", "must be >= 0, got %d", c.Generations)
	}
	if err := wiring.Validate(c.Wiring); err != nil {
		return err
	}
	if c.InitialGenotype != nil {
		if len(c.InitialGenotype) != c.Length {
			return model.NewConfigError("genotype", "initial tape length: got=%d want=%d", len(c.InitialGenotype), c.Length)
		}
		if err := c.Alphabet.Validate(c.InitialGenotype); err != nil {
			return err
		}
	}
	if c.InitialPhenotype != nil && len(c.InitialPhenotype) != c.Length {
		return model.NewConfigError("phenotype", "initial tape length: got=%d want=%d", len(c.InitialPhenotype), c.Length)
	}
	return nil
}

// Machine executes one run. It is single-shot and single-goroutine: all
// randomness flows through one seeded stream consumed in generation-major,
// cell-minor order, and every appended snapshot is frozen.
type Machine struct {
	cfg    Config
	it     wiring.Interpreter
	kernel Kernel
	rng    *rand.Rand
	state  State

	active    wiring.Diagram
	activeHex int

	genotypes  []sigil.Genotype
	phenotypes []sigil.Phenotype
	hexByTick  []int
	tickHashes []string
}

// NewMachine validates the config, seeds the run's rng stream, and freezes
// the tick-0 snapshot. Every configuration check happens here; after
// construction only invariant violations or cancellation can fail a run.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	kernel, err := NewKernel(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		cfg:    cfg,
		it:     wiring.Interpreter{Alphabet: cfg.Alphabet},
		kernel: kernel,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		state:  StateInitialized,
		active: cfg.Wiring,
	}
	g := cfg.InitialGenotype
	if g == nil {
		g = cfg.Alphabet.RandomGenotype(m.rng, cfg.Length)
	} else {
		g = g.Clone()
	}
	p := cfg.InitialPhenotype
	if p == nil {
		p = sigil.RandomPhenotype(m.rng, cfg.Length)
	} else {
		p = p.Clone()
	}
	m.genotypes = append(m.genotypes, g)
	m.phenotypes = append(m.phenotypes, p)
	m.tickHashes = append(m.tickHashes, TickHash(g, p))
	return m, nil
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) KernelName() string {
	return m.kernel.Name()
}

// Run executes every generation synchronously. A machine is single-shot:
// calling Run twice is an error. Cancellation is all-or-nothing — a
// cancelled run fails and cannot resume.
func (m *Machine) Run(ctx context.Context) error {
	if m.state != StateInitialized {
		return fmt.Errorf("machine already ran: state=%s", m.state)
	}
	m.state = StateRunning
	for tick := 0; tick < m.cfg.Generations; tick++ {
		if err := ctx.Err(); err != nil {
			m.state = StateFailed
			return fmt.Errorf("run cancelled before tick %d: %w", tick+1, err)
		}
		m.reclassify(tick)

		cur := m.genotypes[len(m.genotypes)-1]
		next, applied := m.kernel.Step(m.it, m.active, cur, m.rng)
		if err := m.checkSnapshot(tick+1, next, applied); err != nil {
			m.state = StateFailed
			return err
		}

		hash := TickHash(next, applied)
		m.genotypes = append(m.genotypes, next)
		m.phenotypes = append(m.phenotypes, applied)
		m.hexByTick = append(m.hexByTick, m.activeHex)
		m.tickHashes = append(m.tickHashes, hash)
		if m.cfg.Sink != nil {
			m.cfg.Sink(TickEvent{
				Tick:       tick + 1,
				Genotype:   next.Clone(),
				Phenotype:  applied.Clone(),
				HexagramID: m.activeHex,
				Hash:       hash,
			})
		}
	}
	m.state = StateCompleted
	return nil
}

// reclassify re-selects the active wiring at the configured cadence. The
// selected wiring stays active between classification ticks; before the
// sampling window first fills, the base wiring runs and activeHex stays 0.
func (m *Machine) reclassify(tick int) {
	exo := m.cfg.Exotype
	if exo == nil || tick%exo.Cadence() != 0 {
		return
	}
	if d, family, ok := exo.Select(m.genotypes, m.phenotypes, m.rng); ok {
		m.active = d
		m.activeHex = family.HexagramID
	}
}

func (m *Machine) checkSnapshot(tick int, g sigil.Genotype, p sigil.Phenotype) error {
	if len(g) != m.cfg.Length || len(p) != m.cfg.Length {
		return model.StateInvariantError{
			Tick:   tick,
			Detail: fmt.Sprintf("tape length drifted: genotype=%d phenotype=%d want=%d", len(g), len(p), m.cfg.Length),
		}
	}
	if err := m.cfg.Alphabet.Validate(g); err != nil {
		return model.StateInvariantError{Tick: tick, Detail: err.Error()}
	}
	return nil
}

// Result is a frozen copy of a run's output. The final hash commits to the
// entire snapshot stream.
type Result struct {
	Genotypes      []sigil.Genotype
	Phenotypes     []sigil.Phenotype
	HexagramByTick []int
	TickHashes     []string
	FinalHash      string
}

// Result copies the history accumulated so far; after a completed run that
// is the full snapshot stream, ticks 0 through generations.
func (m *Machine) Result() Result {
	res := Result{
		Genotypes:      make([]sigil.Genotype, len(m.genotypes)),
		Phenotypes:     make([]sigil.Phenotype, len(m.phenotypes)),
		HexagramByTick: append([]int(nil), m.hexByTick...),
		TickHashes:     append([]string(nil), m.tickHashes...),
	}
	for i := range m.genotypes {
		res.Genotypes[i] = m.genotypes[i].Clone()
	}
	for i := range m.phenotypes {
		res.Phenotypes[i] = m.phenotypes[i].Clone()
	}
	res.FinalHash = HistoryHash(m.tickHashes)
	return res
}
