package sim

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// DoseResponse holds one genotype's dose-response parameters: the growth rate
// with no drug present and the concentration producing half-maximal
// inhibition. Hill defaults to 1 when left at zero.
type DoseResponse struct {
	DruglessRate float64
	IC50         float64
	Hill         float64
}

// Seascape is the full mapping from drug concentration to fitness across all
// genotypes. Immutable once built for a run.
//
// The pharmacodynamic death model reuses each genotype's IC50 as the midpoint
// of a signed net-growth sigmoid that saturates at GMin under high doses;
// GMin and K carry empirical defaults fit to E. coli growth data.
type Seascape struct {
	Genotypes []DoseResponse

	// pharmacodynamic death-model parameters
	GMin float64 // net growth floor at saturating dose (cells/hour, negative)
	K    float64 // pharmacodynamic Hill slope
}

const (
	// defaultPDK is the empirical pharmacodynamic Hill slope.
	defaultPDK = 0.644
	// defaultGMin is the empirical net-growth floor at saturating dose.
	defaultGMin = -1e8 / 36.34
)

// NewSeascape builds a seascape from per-genotype dose-response parameters.
func NewSeascape(genotypes []DoseResponse) (*Seascape, error) {
	if _, err := AlleleCountFor(len(genotypes)); err != nil {
		return nil, fmt.Errorf("building seascape: %w", err)
	}
	for g, dr := range genotypes {
		if dr.IC50 <= 0 {
			return nil, fmt.Errorf("genotype %d: IC50 must be positive, got %f", g, dr.IC50)
		}
		if dr.Hill < 0 {
			return nil, fmt.Errorf("genotype %d: Hill coefficient must be non-negative, got %f", g, dr.Hill)
		}
	}
	gts := make([]DoseResponse, len(genotypes))
	copy(gts, genotypes)
	return &Seascape{Genotypes: gts, GMin: defaultGMin, K: defaultPDK}, nil
}

// RandomSeascape bootstraps a seascape by drawing each genotype's drugless
// rate uniformly within druglessLimits and its IC50 log-uniformly within
// ic50Limits (log10 units). Used when no measured dose-response table is
// supplied.
func RandomSeascape(rng *rand.Rand, nGenotype int, druglessLimits, ic50Limits [2]float64) (*Seascape, error) {
	if _, err := AlleleCountFor(nGenotype); err != nil {
		return nil, fmt.Errorf("bootstrapping seascape: %w", err)
	}
	genotypes := make([]DoseResponse, nGenotype)
	for g := range genotypes {
		dr := druglessLimits[0] + rng.Float64()*(druglessLimits[1]-druglessLimits[0])
		logIC50 := ic50Limits[0] + rng.Float64()*(ic50Limits[1]-ic50Limits[0])
		genotypes[g] = DoseResponse{
			DruglessRate: dr,
			IC50:         math.Pow(10, logIC50),
			Hill:         1,
		}
	}
	return &Seascape{Genotypes: genotypes, GMin: defaultGMin, K: defaultPDK}, nil
}

// NGenotype returns the number of genotypes in the seascape.
func (s *Seascape) NGenotype() int {
	return len(s.Genotypes)
}

// GrowthRate evaluates the two-parameter dose-response curve for one
// genotype: druglessRate / (1 + (c/IC50)^Hill). Monotonically decreasing in
// c; at c = 0 it equals the drugless rate exactly.
func (s *Seascape) GrowthRate(g int, conc float64) float64 {
	dr := s.Genotypes[g]
	if conc <= 0 {
		return dr.DruglessRate
	}
	hill := dr.Hill
	if hill == 0 {
		hill = 1
	}
	return dr.DruglessRate / (1 + math.Pow(conc/dr.IC50, hill))
}

// NetGrowthRate evaluates the pharmacodynamic model for one genotype: a
// signed net growth rate sliding from the drugless rate down to GMin as the
// concentration passes the genotype's IC50. Negative values mean net death.
func (s *Seascape) NetGrowthRate(g int, conc float64) float64 {
	dr := s.Genotypes[g]
	if conc <= 0 {
		return dr.DruglessRate
	}
	term := math.Pow(conc/dr.IC50, s.K)
	return dr.DruglessRate - (dr.DruglessRate-s.GMin)*term/(term+1)
}

// Landscape evaluates the per-genotype fitness vector at one concentration
// under the given death model, with no population-size attenuation. This is
// the "instantaneous" seascape slice used by the fixation stop condition.
func (s *Seascape) Landscape(conc float64, model DeathModel) []float64 {
	land := make([]float64, len(s.Genotypes))
	for g := range s.Genotypes {
		if model == DeathModelPharmacodynamic {
			land[g] = s.NetGrowthRate(g, conc)
		} else {
			land[g] = s.GrowthRate(g, conc)
		}
	}
	return land
}

// Fittest returns the genotype with the highest fitness at the given
// concentration under the given death model.
func (s *Seascape) Fittest(conc float64, model DeathModel) Genotype {
	land := s.Landscape(conc, model)
	return Genotype(floats.MaxIdx(land))
}

// EvaluateFitness computes the per-genotype growth-rate vector the update
// step consumes: the landscape at the given concentration, attenuated by the
// logistic carrying-capacity factor (1 - N/cap) when the config enables it.
// The attenuation factor is clamped at zero once the population exceeds the
// capacity.
func EvaluateFitness(cfg Config, s *Seascape, conc float64, counts []float64) []float64 {
	land := s.Landscape(conc, cfg.DeathModel)
	if cfg.effectiveUseCarryingCap() {
		factor := 1 - floats.Sum(counts)/cfg.CarryingCap
		if factor < 0 {
			factor = 0
		}
		floats.Scale(factor, land)
	}
	return land
}

// Null derives the no-trade-off counterfactual seascape at a reference
// concentration: the marginal distributions of drugless rates and IC50s are
// kept, but they are re-paired rank-concordantly in the order of natural
// fitness at refConc. The natural seascape's resistance/growth trade-off is
// thereby removed while every single-genotype parameter value survives.
func (s *Seascape) Null(refConc float64) *Seascape {
	n := len(s.Genotypes)

	// order genotypes by natural fitness at the reference concentration
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	land := s.Landscape(refConc, DeathModelDefault)
	sort.Slice(order, func(i, j int) bool { return land[order[i]] < land[order[j]] })

	rates := make([]float64, n)
	ic50s := make([]float64, n)
	hills := make([]float64, n)
	for i, dr := range s.Genotypes {
		rates[i] = dr.DruglessRate
		ic50s[i] = dr.IC50
		hills[i] = dr.Hill
	}
	sort.Float64s(rates)
	sort.Float64s(ic50s)

	genotypes := make([]DoseResponse, n)
	for rank, g := range order {
		genotypes[g] = DoseResponse{
			DruglessRate: rates[rank],
			IC50:         ic50s[rank],
			Hill:         hills[g],
		}
	}
	return &Seascape{Genotypes: genotypes, GMin: s.GMin, K: s.K}
}
