package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMutationMatrix_RowsSumToOne(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16, 32} {
		p, err := BuildMutationMatrix(n)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			rowSum := 0.0
			for j := 0; j < n; j++ {
				rowSum += p.At(i, j)
			}
			assert.InDelta(t, 1.0, rowSum, 1e-12, "n=%d row=%d", n, i)
		}
	}
}

func TestBuildMutationMatrix_HammingAdjacency(t *testing.T) {
	const n = 16
	p, err := BuildMutationMatrix(n)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if HammingDistance(Genotype(i), Genotype(j)) == 1 {
				assert.Greater(t, p.At(i, j), 0.0, "i=%d j=%d", i, j)
			} else {
				assert.Zero(t, p.At(i, j), "i=%d j=%d", i, j)
			}
		}
	}
}

func TestBuildMutationMatrix_UniformOverNeighbors(t *testing.T) {
	p, err := BuildMutationMatrix(8)
	require.NoError(t, err)

	// every genotype has exactly 3 neighbors, so each transition is 1/3
	for _, nb := range Neighbors(0, 3) {
		assert.InDelta(t, 1.0/3.0, p.At(0, int(nb)), 1e-12)
	}
}

func TestBuildMutationMatrix_InvalidGenotypeCount(t *testing.T) {
	for _, bad := range []int{0, 1, 3, 12} {
		_, err := BuildMutationMatrix(bad)
		assert.Error(t, err, "n=%d", bad)
	}
}
