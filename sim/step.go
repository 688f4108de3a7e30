package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Step advances the count vector by one timestep of the stochastic
// birth-death-mutation process. fitLand is the per-genotype fitness vector at
// this timestep's drug concentration (from EvaluateFitness), unscaled; Step
// applies the timestep duration to fitness, death, and mutation rates itself.
//
// The order of operations is: passaging (when due), death/birth draws per the
// configured death model, clamp to zero, mutation of daughter cells through
// the transition matrix, and finally constant-population renormalization.
//
// Step never mutates its inputs; given the same RNG stream it is a pure
// function. The returned vector has no negative entries.
func Step(cfg Config, timestep int, counts []float64, p *mat.Dense, fitLand []float64, rng *rand.Rand) ([]float64, error) {
	n := cfg.NGenotype
	if len(counts) != n || len(fitLand) != n {
		return nil, fmt.Errorf("step at timestep %d: expected %d genotypes, got %d counts and %d fitness entries",
			timestep, n, len(counts), len(fitLand))
	}
	if r, c := p.Dims(); r != n || c != n {
		return nil, fmt.Errorf("step at timestep %d: mutation matrix is %dx%d, want %dx%d", timestep, r, c, n, n)
	}

	fit := make([]float64, n)
	copy(fit, fitLand)
	floats.Scale(cfg.TimestepScale, fit)
	deathRate := cfg.DeathRate * cfg.TimestepScale
	mutRate := cfg.MutRate * cfg.TimestepScale

	cur := passageCells(cfg, timestep, counts)

	next := make([]float64, n)
	daughters := make([]float64, n)

	if cfg.DeathModel == DeathModelPharmacodynamic {
		// signed net-growth draws: magnitude from |fitness|, sign from fitness
		for g := 0; g < n; g++ {
			delta := PoissonDraw(rng, cur[g]*math.Abs(fit[g]))
			turnover := PoissonDraw(rng, cur[g]*deathRate)
			if fit[g] < 0 {
				next[g] = cur[g] - delta - turnover
			} else {
				next[g] = cur[g] - turnover
				daughters[g] = delta
			}
		}
	} else {
		for g := 0; g < n; g++ {
			next[g] = cur[g] - PoissonDraw(rng, cur[g]*deathRate)
		}
		clampNegative(next)
		for g := 0; g < n; g++ {
			// growth rates are net new cells only under the default model
			if fit[g] > 0 {
				daughters[g] = PoissonDraw(rng, next[g]*fit[g])
			}
		}
	}
	clampNegative(next)

	// A daughter cell mutates with per-allele probability mutRate across
	// NAllele alleles; mutants leave their parent genotype's pool and land on
	// a Hamming-1 neighbor according to the transition matrix row.
	for g := 0; g < n; g++ {
		nMut := PoissonDraw(rng, daughters[g]*mutRate*float64(cfg.NAllele))
		if nMut > daughters[g] {
			nMut = daughters[g]
		}
		if nMut <= 0 {
			continue
		}
		daughters[g] -= nMut
		floats.Add(next, MultinomialDraw(rng, nMut, p.RawRowView(g)))
	}
	floats.Add(next, daughters)
	clampNegative(next)

	if cfg.ConstantPop {
		total := floats.Sum(next)
		if total > 0 {
			floats.Scale(cfg.MaxCells/total, next)
			for g := range next {
				next[g] = math.Ceil(next[g])
			}
		}
	}
	return next, nil
}

// passageCells dilutes the culture by the configured factor when the
// timestep falls on a passage boundary (never at timestep 0), flooring each
// genotype to whole cells. Any other timestep returns a plain copy.
func passageCells(cfg Config, timestep int, counts []float64) []float64 {
	out := make([]float64, len(counts))
	copy(out, counts)

	if !cfg.Passage || timestep == 0 {
		return out
	}
	if math.Mod(float64(timestep)*cfg.TimestepScale, cfg.PassageTime) != 0 {
		return out
	}
	for g := range out {
		out[g] = math.Floor(out[g] / cfg.Dilution)
	}
	return out
}

func clampNegative(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}
