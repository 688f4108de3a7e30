package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

func TestPartitionedRNG_DeterministicPerSubsystem(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(42))
	b := NewPartitionedRNG(NewSimulationKey(42))

	ra := a.ForSubsystem(SubsystemReplicate(0))
	rb := b.ForSubsystem(SubsystemReplicate(0))
	for i := 0; i < 100; i++ {
		require.Equal(t, ra.Float64(), rb.Float64(), "draw %d", i)
	}
}

func TestPartitionedRNG_SubsystemsAreIsolated(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(42))

	r0 := p.ForSubsystem(SubsystemReplicate(0))
	r1 := p.ForSubsystem(SubsystemReplicate(1))

	same := true
	for i := 0; i < 10; i++ {
		if r0.Float64() != r1.Float64() {
			same = false
		}
	}
	assert.False(t, same, "replicate streams must not coincide")
}

func TestPartitionedRNG_CachesInstances(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(7))
	assert.Same(t, p.ForSubsystem(SubsystemCurve), p.ForSubsystem(SubsystemCurve))
	assert.Equal(t, SimulationKey(7), p.Key())
}

func TestPoissonDraw_DegenerateRates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Zero(t, PoissonDraw(rng, 0))
	assert.Zero(t, PoissonDraw(rng, -3))
}

func TestPoissonDraw_MeanMatchesRate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const lambda = 50.0
	total := 0.0
	for i := 0; i < 2000; i++ {
		total += PoissonDraw(rng, lambda)
	}
	assert.InDelta(t, lambda, total/2000, 1.0)
}

func TestBinomialDraw_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Zero(t, BinomialDraw(rng, 0, 0.5))
	assert.Zero(t, BinomialDraw(rng, 10, 0))
	assert.Equal(t, 10.0, BinomialDraw(rng, 10, 1))

	for i := 0; i < 100; i++ {
		k := BinomialDraw(rng, 20, 0.3)
		assert.GreaterOrEqual(t, k, 0.0)
		assert.LessOrEqual(t, k, 20.0)
	}
}

func TestMultinomialDraw_SumsToN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := []float64{0.25, 0.25, 0.25, 0.25}
	for i := 0; i < 100; i++ {
		counts := MultinomialDraw(rng, 1000, p)
		assert.Equal(t, 1000.0, floats.Sum(counts))
	}
}

func TestMultinomialDraw_ZeroProbabilityCategories(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := []float64{0, 0.5, 0, 0.5}
	for i := 0; i < 100; i++ {
		counts := MultinomialDraw(rng, 100, p)
		assert.Zero(t, counts[0])
		assert.Zero(t, counts[2])
		assert.Equal(t, 100.0, floats.Sum(counts))
	}
}
