package sim

import (
	"fmt"
	"hash/fnv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey uint64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed uint64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemCurve is the RNG subsystem for drug-curve generation
	// (pulsed-dosing nonadherence draws). Uses the master seed directly so
	// the drug curve is stable under --seed regardless of replicate count.
	SubsystemCurve = "curve"

	// SubsystemSeascape is the RNG subsystem for random-seascape bootstraps.
	SubsystemSeascape = "seascape"
)

// SubsystemReplicate returns the subsystem name for replicate N. Every
// replicate draws its birth, death, and mutation outcomes from its own
// stream, which is what keeps replicates embarrassingly parallel.
func SubsystemReplicate(id int) string {
	return fmt.Sprintf("replicate_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemCurve: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Derive all subsystem RNGs before handing
// them to worker goroutines; each *rand.Rand must then stay on one goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed uint64
	if name == SubsystemCurve {
		derivedSeed = uint64(p.key)
	} else {
		derivedSeed = uint64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// === Sampling helpers ===

// PoissonDraw samples Poisson(lambda) from the given source. A zero or
// negative rate is a valid degenerate case (an empty genotype, a zero growth
// rate) and returns 0 without touching the sampler.
func PoissonDraw(rng *rand.Rand, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: lambda, Src: rng}.Rand()
}

// BinomialDraw samples Binomial(n, p) from the given source.
func BinomialDraw(rng *rand.Rand, n float64, p float64) float64 {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	return distuv.Binomial{N: n, P: p, Src: rng}.Rand()
}

// MultinomialDraw distributes n draws over the probability vector p using the
// conditional-binomial decomposition. p must sum to 1 within floating
// tolerance; any rounding remainder lands on the last positive-probability
// category.
func MultinomialDraw(rng *rand.Rand, n float64, p []float64) []float64 {
	counts := make([]float64, len(p))
	remaining := n
	rest := 1.0
	lastPositive := -1

	for i, pi := range p {
		if pi <= 0 {
			continue
		}
		lastPositive = i
		if remaining <= 0 || rest <= 0 {
			break
		}
		q := pi / rest
		if q >= 1 {
			counts[i] = remaining
			remaining = 0
			break
		}
		k := BinomialDraw(rng, remaining, q)
		counts[i] = k
		remaining -= k
		rest -= pi
	}

	if remaining > 0 && lastPositive >= 0 {
		counts[lastPositive] += remaining
	}
	return counts
}
