package sim

import (
	"fmt"
	"math/bits"
)

// Genotype identifies a combination of resistance alleles as a bit string:
// bit i set means resistance allele i is present. With A alleles the genotype
// space is [0, 2^A).
type Genotype int

// Neighbors returns the nAllele genotypes reachable from g by flipping
// exactly one bit, in allele order.
func Neighbors(g Genotype, nAllele int) []Genotype {
	neighbors := make([]Genotype, nAllele)
	for m := 0; m < nAllele; m++ {
		neighbors[m] = g ^ (1 << m)
	}
	return neighbors
}

// HammingDistance counts the bits on which two genotypes differ.
func HammingDistance(a, b Genotype) int {
	return bits.OnesCount(uint(a ^ b))
}

// GenotypeString formats a genotype as a zero-padded binary string with one
// digit per allele. Used in logs and summaries.
func GenotypeString(g Genotype, nAllele int) string {
	return fmt.Sprintf("%0*b", nAllele, int(g))
}

// AlleleCountFor returns A such that nGenotype == 2^A.
// A genotype count that is not a power of two (or < 2) cannot describe a
// bit-string allele space and is a configuration error.
func AlleleCountFor(nGenotype int) (int, error) {
	if nGenotype < 2 || bits.OnesCount(uint(nGenotype)) != 1 {
		return 0, fmt.Errorf("genotype count %d is not a power of two >= 2", nGenotype)
	}
	return bits.TrailingZeros(uint(nGenotype)), nil
}
