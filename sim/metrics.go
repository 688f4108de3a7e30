package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes one simulate call across its replicates.
type Metrics struct {
	NReplicates        int
	TerminalTimesteps  []int
	TerminalPopulation []float64 // total cells at each replicate's terminal timestep
	Fixated            int
	BoundExceeded      int
}

// Summarize derives run metrics from a simulation result.
func Summarize(res *SimulationResult) *Metrics {
	m := &Metrics{
		NReplicates:       len(res.Replicates),
		TerminalTimesteps: res.TerminalTimesteps,
	}
	for _, rep := range res.Replicates {
		m.TerminalPopulation = append(m.TerminalPopulation, rowSum(rep.Trajectory, rep.TerminalTimestep))
		switch rep.Reason {
		case TerminationFixated:
			m.Fixated++
		case TerminationBoundExceeded:
			m.BoundExceeded++
		}
	}
	return m
}

// MeanTerminalTimestep is the average fixation/termination timestep.
func (m *Metrics) MeanTerminalTimestep() float64 {
	ts := make([]float64, len(m.TerminalTimesteps))
	for i, t := range m.TerminalTimesteps {
		ts[i] = float64(t)
	}
	return stat.Mean(ts, nil)
}

// Print writes a human-readable run summary to stdout.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Replicates           : %d\n", m.NReplicates)
	fmt.Printf("Mean terminal step   : %.1f\n", m.MeanTerminalTimestep())
	if m.Fixated > 0 || m.BoundExceeded > 0 {
		fmt.Printf("Fixated              : %d\n", m.Fixated)
		fmt.Printf("Bound exceeded       : %d\n", m.BoundExceeded)
	}
	for i, pop := range m.TerminalPopulation {
		fmt.Printf("Replicate %02d         : %.3g cells at step %d\n", i, pop, m.TerminalTimesteps[i])
	}
}

// ExtinctionTime scans a trajectory for the first timestep at which the total
// population falls below thresh. Returns whether extinction was observed and
// the event time in hours (the trajectory length if never observed).
func ExtinctionTime(traj *mat.Dense, thresh, timestepScale float64) (bool, float64) {
	rows, _ := traj.Dims()
	for t := 0; t < rows; t++ {
		if rowSum(traj, t) < thresh {
			return true, float64(t) * timestepScale
		}
	}
	return false, float64(rows) * timestepScale
}

// ResistanceTime scans a trajectory for the first timestep at which the given
// genotype's count exceeds thresh. Returns whether the event was observed and
// the event time in hours.
func ResistanceTime(traj *mat.Dense, genotype Genotype, thresh, timestepScale float64) (bool, float64) {
	rows, _ := traj.Dims()
	for t := 0; t < rows; t++ {
		if traj.At(t, int(genotype)) > thresh {
			return true, float64(t) * timestepScale
		}
	}
	return false, float64(rows) * timestepScale
}

func rowSum(m *mat.Dense, row int) float64 {
	_, cols := m.Dims()
	total := 0.0
	for c := 0; c < cols; c++ {
		total += m.At(row, c)
	}
	return total
}
