// Package sim provides the core stochastic evolutionary simulation engine:
// a genetically discrete, well-mixed microbial population evolving in fixed
// timesteps under time-varying drug exposure.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - fitness.go: the seascape (concentration -> per-genotype fitness) and its variants
//   - step.go: the single-timestep birth-death-mutation transition
//   - population.go: the replicate driver, stop conditions, and averaging
//
// # Architecture
//
// The genotype space is a bit-string hypercube: genotype.go enumerates
// Hamming-1 neighbors and mutation.go turns that adjacency into a
// row-normalized transition matrix, built once per run. Drug concentration
// curves live in the sim/pharm sub-package and are generated before the
// stochastic loop starts; the loop itself only reads them.
//
// Per timestep, the driver evaluates the seascape at the current
// concentration (EvaluateFitness), then Step draws Poisson births and deaths,
// redistributes mutating daughter cells through the transition matrix, and
// applies population-size control (passaging, clamping, constant-population
// renormalization).
//
// Replicates are independent: they share only the read-only mutation matrix,
// drug curve, and seascape, and each draws from its own partitioned RNG
// stream (rng.go), so Simulate runs them in parallel.
package sim
