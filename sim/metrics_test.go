package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func replicateWith(reason TerminationReason, terminal int, traj *mat.Dense) *ReplicateResult {
	return &ReplicateResult{Trajectory: traj, TerminalTimestep: terminal, Reason: reason}
}

func TestSummarize(t *testing.T) {
	a := mat.NewDense(4, 2, []float64{
		100, 0,
		80, 10,
		60, 40,
		20, 90,
	})
	b := mat.NewDense(4, 2, []float64{
		100, 0,
		90, 0,
		85, 0,
		85, 0,
	})

	res := &SimulationResult{
		TerminalTimesteps: []int{3, 2},
		Replicates: []*ReplicateResult{
			replicateWith(TerminationFixated, 3, a),
			replicateWith(TerminationBoundExceeded, 2, b),
		},
	}
	m := Summarize(res)

	assert.Equal(t, 2, m.NReplicates)
	assert.Equal(t, 1, m.Fixated)
	assert.Equal(t, 1, m.BoundExceeded)
	assert.Equal(t, []float64{110, 85}, m.TerminalPopulation)
	assert.InDelta(t, 2.5, m.MeanTerminalTimestep(), 1e-12)

	m.Print() // smoke: formatting must not panic
}

func TestExtinctionTime(t *testing.T) {
	traj := mat.NewDense(5, 2, []float64{
		100, 0,
		40, 10,
		10, 5,
		2, 1,
		0, 0,
	})

	ok, hours := ExtinctionTime(traj, 10, 1)
	require.True(t, ok)
	assert.Equal(t, 3.0, hours)

	// timestep scale converts the event index to hours
	ok, hours = ExtinctionTime(traj, 10, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1.5, hours)

	ok, hours = ExtinctionTime(traj, 0.5, 1)
	require.True(t, ok)
	assert.Equal(t, 4.0, hours)

	ok, hours = ExtinctionTime(traj, -1, 1)
	assert.False(t, ok)
	assert.Equal(t, 5.0, hours)
}

func TestResistanceTime(t *testing.T) {
	traj := mat.NewDense(4, 2, []float64{
		100, 0,
		90, 5,
		60, 80,
		10, 150,
	})

	ok, hours := ResistanceTime(traj, 1, 50, 1)
	require.True(t, ok)
	assert.Equal(t, 2.0, hours)

	ok, hours = ResistanceTime(traj, 0, 1e6, 1)
	assert.False(t, ok)
	assert.Equal(t, 4.0, hours)

	ok, hours = ResistanceTime(traj, 1, 50, 2)
	require.True(t, ok)
	assert.Equal(t, 4.0, hours)
}
