package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// BuildMutationMatrix builds the genotype-by-genotype transition probability
// matrix. Raw weight is 1 between genotypes at Hamming distance exactly 1 and
// 0 everywhere else (including the diagonal); each row is then normalized to
// sum to 1. The matrix is deterministic given nGenotype and is built once per
// run, then shared read-only across all timesteps and replicates.
func BuildMutationMatrix(nGenotype int) (*mat.Dense, error) {
	if _, err := AlleleCountFor(nGenotype); err != nil {
		return nil, fmt.Errorf("building mutation matrix: %w", err)
	}

	p := mat.NewDense(nGenotype, nGenotype, nil)
	for i := 0; i < nGenotype; i++ {
		rowSum := 0.0
		for j := 0; j < nGenotype; j++ {
			if HammingDistance(Genotype(i), Genotype(j)) == 1 {
				p.Set(i, j, 1)
				rowSum++
			}
		}
		if rowSum == 0 {
			// unreachable once nGenotype >= 2, kept as an invariant check
			return nil, fmt.Errorf("mutation matrix row %d has no neighbors", i)
		}
		for j := 0; j < nGenotype; j++ {
			p.Set(i, j, p.At(i, j)/rowSum)
		}
	}
	return p, nil
}
