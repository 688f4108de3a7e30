package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// fourGenotypeSeascape covers 2 alleles with a growth/resistance trade-off:
// higher IC50 costs drugless growth rate.
func fourGenotypeSeascape(t *testing.T) *Seascape {
	t.Helper()
	sea, err := NewSeascape([]DoseResponse{
		{DruglessRate: 1.4, IC50: 0.01},
		{DruglessRate: 1.3, IC50: 0.1},
		{DruglessRate: 1.2, IC50: 1},
		{DruglessRate: 1.1, IC50: 10},
	})
	require.NoError(t, err)
	return sea
}

func TestGrowthRate_ZeroConcentrationIsDruglessRate(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	for g, dr := range sea.Genotypes {
		assert.Equal(t, dr.DruglessRate, sea.GrowthRate(g, 0), "genotype %d", g)
	}
}

func TestGrowthRate_HalfMaximalAtIC50(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	for g, dr := range sea.Genotypes {
		assert.InDelta(t, dr.DruglessRate/2, sea.GrowthRate(g, dr.IC50), 1e-12, "genotype %d", g)
	}
}

func TestGrowthRate_MonotonicallyDecreasing(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	for g := range sea.Genotypes {
		prev := sea.GrowthRate(g, 0)
		for _, c := range []float64{0.001, 0.01, 0.1, 1, 10, 100} {
			cur := sea.GrowthRate(g, c)
			assert.Less(t, cur, prev, "genotype %d at conc %g", g, c)
			prev = cur
		}
	}
}

func TestNetGrowthRate_SignFlipsUnderHighDose(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	for g, dr := range sea.Genotypes {
		assert.Equal(t, dr.DruglessRate, sea.NetGrowthRate(g, 0), "genotype %d drugless", g)
		high := sea.NetGrowthRate(g, 1e6*dr.IC50)
		assert.Negative(t, high, "genotype %d at saturating dose", g)
		assert.Greater(t, high, sea.GMin, "net growth is floored at GMin")
	}
}

func TestFittest_TracksDose(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	assert.Equal(t, Genotype(0), sea.Fittest(0, DeathModelDefault), "no drug favors the fastest grower")
	assert.Equal(t, Genotype(3), sea.Fittest(100, DeathModelDefault), "high dose favors the most resistant")
}

func TestEvaluateFitness_CarryingCapAttenuation(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	cfg := DefaultConfig()
	cfg.NAllele, cfg.NGenotype = 2, 4
	cfg.UseCarryingCap = true
	cfg.CarryingCap = 1e8

	empty := EvaluateFitness(cfg, sea, 0, []float64{0, 0, 0, 0})
	half := EvaluateFitness(cfg, sea, 0, []float64{5e7, 0, 0, 0})
	full := EvaluateFitness(cfg, sea, 0, []float64{1e8, 0, 0, 0})
	over := EvaluateFitness(cfg, sea, 0, []float64{2e8, 0, 0, 0})

	for g := range sea.Genotypes {
		assert.InDelta(t, sea.Genotypes[g].DruglessRate, empty[g], 1e-12)
		assert.InDelta(t, sea.Genotypes[g].DruglessRate/2, half[g], 1e-12)
		assert.Zero(t, full[g])
		assert.Zero(t, over[g], "attenuation factor clamps at zero beyond capacity")
	}
}

func TestEvaluateFitness_ConstantPopDisablesCarryingCap(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	cfg := DefaultConfig()
	cfg.NAllele, cfg.NGenotype = 2, 4
	cfg.UseCarryingCap = true
	cfg.ConstantPop = true

	fit := EvaluateFitness(cfg, sea, 0, []float64{1e12, 0, 0, 0})
	assert.Equal(t, sea.Genotypes[0].DruglessRate, fit[0])
}

func TestNullSeascape_RemovesTradeOff(t *testing.T) {
	sea := fourGenotypeSeascape(t)
	null := sea.Null(1)

	var rates, ic50s, nullRates, nullIC50s []float64
	for g := range sea.Genotypes {
		rates = append(rates, sea.Genotypes[g].DruglessRate)
		ic50s = append(ic50s, sea.Genotypes[g].IC50)
		nullRates = append(nullRates, null.Genotypes[g].DruglessRate)
		nullIC50s = append(nullIC50s, null.Genotypes[g].IC50)
	}

	// marginal parameter distributions survive the re-pairing
	assert.ElementsMatch(t, rates, nullRates)
	assert.ElementsMatch(t, ic50s, nullIC50s)

	// rank concordance: a higher drugless rate now implies a higher IC50
	for i := range null.Genotypes {
		for j := range null.Genotypes {
			if null.Genotypes[i].DruglessRate > null.Genotypes[j].DruglessRate {
				assert.Greater(t, null.Genotypes[i].IC50, null.Genotypes[j].IC50)
			}
		}
	}

	// the natural seascape is untouched
	assert.Equal(t, 1.4, sea.Genotypes[0].DruglessRate)
	assert.Equal(t, 0.01, sea.Genotypes[0].IC50)
}

func TestRandomSeascape_WithinLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	druglessLimits := [2]float64{1, 1.5}
	ic50Limits := [2]float64{-3, 3}

	sea, err := RandomSeascape(rng, 16, druglessLimits, ic50Limits)
	require.NoError(t, err)
	require.Equal(t, 16, sea.NGenotype())

	for g, dr := range sea.Genotypes {
		assert.GreaterOrEqual(t, dr.DruglessRate, druglessLimits[0], "genotype %d", g)
		assert.LessOrEqual(t, dr.DruglessRate, druglessLimits[1], "genotype %d", g)
		logIC50 := math.Log10(dr.IC50)
		assert.GreaterOrEqual(t, logIC50, ic50Limits[0], "genotype %d", g)
		assert.LessOrEqual(t, logIC50, ic50Limits[1], "genotype %d", g)
	}
}

func TestRandomSeascape_InvalidGenotypeCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	_, err := RandomSeascape(rng, 5, [2]float64{1, 1.5}, [2]float64{-3, 3})
	assert.Error(t, err)
}

func TestNewSeascape_RejectsBadParameters(t *testing.T) {
	_, err := NewSeascape([]DoseResponse{
		{DruglessRate: 1, IC50: 0},
		{DruglessRate: 1, IC50: 1},
	})
	assert.Error(t, err, "IC50 must be positive")

	_, err = NewSeascape([]DoseResponse{{DruglessRate: 1, IC50: 1}})
	assert.Error(t, err, "a single genotype is not a bit-string space")
}
