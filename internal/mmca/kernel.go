package mmca

import (
	"math/rand"

	"proteus/internal/model"
	"proteus/internal/sigil"
	"proteus/internal/wiring"
)

const (
	KernelReference = "reference"
	KernelIndexed   = "indexed"
)

// KernelNames lists the available kernel selectors in a fixed order.
func KernelNames() []string {
	return []string{KernelReference, KernelIndexed}
}

// Kernel advances one generation from a frozen snapshot. Implementations
// must evaluate cells in ascending index order against the previous tick
// only, so every kernel consumes the rng stream identically and produces
// byte-identical output.
type Kernel interface {
	Name() string
	Step(it wiring.Interpreter, d wiring.Diagram, g sigil.Genotype, rng *rand.Rand) (sigil.Genotype, sigil.Phenotype)
}

// NewKernel resolves a kernel selector; the empty selector means reference.
// Unknown names fail before the first tick.
func NewKernel(name string) (Kernel, error) {
	switch name {
	case "", KernelReference:
		return referenceKernel{}, nil
	case KernelIndexed:
		return &indexedKernel{}, nil
	default:
		return nil, model.NewConfigError("kernel", "unknown kernel: %s", name)
	}
}

// referenceKernel builds each radius-1 toroidal neighborhood on the fly.
type referenceKernel struct{}

func (referenceKernel) Name() string { return KernelReference }

func (referenceKernel) Step(it wiring.Interpreter, d wiring.Diagram, g sigil.Genotype, rng *rand.Rand) (sigil.Genotype, sigil.Phenotype) {
	n := len(g)
	next := make(sigil.Genotype, n)
	applied := make(sigil.Phenotype, n)
	for i := 0; i < n; i++ {
		neigh := wiring.Neighborhood{g[(i-1+n)%n], g[i], g[(i+1)%n]}
		out, ok := it.Evaluate(d, neigh, g[i], rng)
		next[i] = out
		if ok {
			applied[i] = 1
		}
	}
	return next, applied
}

// indexedKernel precomputes toroidal neighbor tables per tape length and
// reuses one scratch window across cells. The interpreter never retains or
// mutates the window it is handed, so the reuse is safe.
type indexedKernel struct {
	pred    []int
	succ    []int
	scratch wiring.Neighborhood
}

func (*indexedKernel) Name() string { return KernelIndexed }

func (k *indexedKernel) Step(it wiring.Interpreter, d wiring.Diagram, g sigil.Genotype, rng *rand.Rand) (sigil.Genotype, sigil.Phenotype) {
	n := len(g)
	if len(k.pred) != n {
		k.rebuild(n)
	}
	next := make(sigil.Genotype, n)
	applied := make(sigil.Phenotype, n)
	for i := 0; i < n; i++ {
		k.scratch[0] = g[k.pred[i]]
		k.scratch[1] = g[i]
		k.scratch[2] = g[k.succ[i]]
		out, ok := it.Evaluate(d, k.scratch, g[i], rng)
		next[i] = out
		if ok {
			applied[i] = 1
		}
	}
	return next, applied
}

func (k *indexedKernel) rebuild(n int) {
	k.pred = make([]int, n)
	k.succ = make([]int, n)
	for i := 0; i < n; i++ {
		k.pred[i] = (i - 1 + n) % n
		k.succ[i] = (i + 1) % n
	}
	k.scratch = make(wiring.Neighborhood, 3)
}
