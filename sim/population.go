package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/seascape-sim/seascape-sim/sim/pharm"
)

// ErrFixationNotReached reports that the fixation stop condition was not met
// within the configured horizon. The replicate's best-effort trajectory up to
// the horizon is still returned alongside it.
var ErrFixationNotReached = errors.New("fixation not reached within the horizon")

// TerminationReason says why a replicate stopped.
type TerminationReason int

const (
	// TerminationFixed: the fixed horizon was reached (no stop condition).
	TerminationFixed TerminationReason = iota
	// TerminationFixated: the most numerous genotype became the fittest
	// genotype at maximum dose.
	TerminationFixated
	// TerminationBoundExceeded: the stop condition was enabled but not met
	// within the horizon.
	TerminationBoundExceeded
)

func (r TerminationReason) String() string {
	switch r {
	case TerminationFixed:
		return "fixed-horizon"
	case TerminationFixated:
		return "fixated"
	case TerminationBoundExceeded:
		return "bound-exceeded"
	}
	return fmt.Sprintf("TerminationReason(%d)", int(r))
}

// ReplicateResult is one independent stochastic replicate's output.
type ReplicateResult struct {
	// Trajectory is the timestep-by-genotype count matrix. Rows after the
	// terminal timestep repeat the terminal counts, so trajectories from
	// replicates that fixate early still average elementwise.
	Trajectory *mat.Dense
	// TerminalTimestep is the fixation timestep under the stop condition,
	// or the last timestep of the horizon otherwise.
	TerminalTimestep int
	Reason           TerminationReason
}

// SimulationResult aggregates all replicates of one simulate call.
type SimulationResult struct {
	// AvgTrajectory is the elementwise average count trajectory.
	AvgTrajectory *mat.Dense
	// TerminalTimesteps holds each replicate's fixation/termination timestep.
	TerminalTimesteps []int
	Replicates        []*ReplicateResult
}

// Simulation binds a validated config to its derived read-only inputs: the
// mutation matrix, the drug concentration curve, and the seascape. Replicates
// share these without coordination; each replicate's randomness comes from
// its own partitioned RNG stream.
type Simulation struct {
	cfg      Config
	sea      *Seascape
	p        *mat.Dense
	curve    []float64
	impulses []float64
	rng      *PartitionedRNG
}

// NewSimulation validates the config, builds the mutation matrix, and
// generates the drug curve. The seascape must cover exactly the configured
// genotype space.
func NewSimulation(cfg Config, sea *Seascape, seed uint64) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if sea.NGenotype() != cfg.NGenotype {
		return nil, fmt.Errorf("seascape covers %d genotypes, config expects %d", sea.NGenotype(), cfg.NGenotype)
	}

	p, err := BuildMutationMatrix(cfg.NGenotype)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg: cfg,
		sea: sea,
		p:   p,
		rng: NewPartitionedRNG(NewSimulationKey(seed)),
	}
	if err := s.generateCurve(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the simulation's configuration.
func (s *Simulation) Config() Config { return s.cfg }

// MutationMatrix exposes the shared transition matrix (read-only by contract).
func (s *Simulation) MutationMatrix() *mat.Dense { return s.p }

// DrugCurve returns a copy of the active concentration curve.
func (s *Simulation) DrugCurve() []float64 {
	out := make([]float64, len(s.curve))
	copy(out, s.curve)
	return out
}

// Impulses returns a copy of the dosing-impulse train, or nil for the
// analytic curve types.
func (s *Simulation) Impulses() []float64 {
	if s.impulses == nil {
		return nil
	}
	out := make([]float64, len(s.impulses))
	copy(out, s.impulses)
	return out
}

func (s *Simulation) generateCurve() error {
	curveCfg := s.cfg.Curve
	curveCfg.TimestepScale = s.cfg.TimestepScale
	curve, impulses, err := pharm.Generate(curveCfg, s.cfg.NTimestep, s.rng.ForSubsystem(SubsystemCurve))
	if err != nil {
		return fmt.Errorf("generating drug curve: %w", err)
	}
	s.curve, s.impulses = curve, impulses
	return nil
}

// RegenerateCurve applies the overrides to a copy of the config and rebuilds
// the drug curve, leaving all other simulation state untouched. Pulsed
// nonadherence draws are re-drawn from the curve RNG stream, so successive
// regenerations yield fresh regimens under the same master seed.
func (s *Simulation) RegenerateCurve(overrides ...Override) error {
	next := s.cfg.WithOverrides(overrides...)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid curve override: %w", err)
	}
	prev := s.cfg
	s.cfg = next
	if err := s.generateCurve(); err != nil {
		s.cfg = prev
		return err
	}
	return nil
}

// SetRampProfile replaces the drug curve with a three-segment
// ramp-up/ramp-down profile (the ramp experiment).
func (s *Simulation) SetRampProfile(profile pharm.RampProfile) error {
	curve, err := profile.Generate(s.cfg.NTimestep)
	if err != nil {
		return fmt.Errorf("generating ramp profile: %w", err)
	}
	s.curve, s.impulses = curve, nil
	return nil
}

// RunReplicate runs one independent stochastic replicate. Under the fixation
// stop condition the replicate ends as soon as the most numerous genotype
// equals the fittest genotype at maximum dose; if the horizon is exhausted
// first, the best-effort result is returned together with
// ErrFixationNotReached. The context is checked every timestep so runaway
// fixation searches can be cancelled.
func (s *Simulation) RunReplicate(ctx context.Context, id int) (*ReplicateResult, error) {
	return s.runReplicate(ctx, id, s.rng.ForSubsystem(SubsystemReplicate(id)))
}

func (s *Simulation) runReplicate(ctx context.Context, id int, rng *rand.Rand) (*ReplicateResult, error) {
	cfg := s.cfg
	n := cfg.NGenotype

	counts := cfg.initCounts()
	traj := mat.NewDense(cfg.NTimestep, n, nil)
	traj.SetRow(0, counts)

	fittest := s.sea.Fittest(cfg.Curve.MaxDose, cfg.DeathModel)

	for t := 0; t < cfg.NTimestep-1; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replicate %d cancelled at timestep %d: %w", id, t, err)
		}

		fit := EvaluateFitness(cfg, s.sea, s.curve[t], counts)
		next, err := Step(cfg, t, counts, s.p, fit, rng)
		if err != nil {
			return nil, fmt.Errorf("replicate %d: %w", id, err)
		}
		counts = next
		traj.SetRow(t+1, counts)

		if cfg.StopCondition && Genotype(floats.MaxIdx(counts)) == fittest {
			logrus.Debugf("[replicate %02d] fixated on genotype %s at timestep %d",
				id, GenotypeString(fittest, cfg.NAllele), t+1)
			fillRows(traj, t+2, counts)
			return &ReplicateResult{Trajectory: traj, TerminalTimestep: t + 1, Reason: TerminationFixated}, nil
		}
	}

	if cfg.StopCondition {
		return &ReplicateResult{
			Trajectory:       traj,
			TerminalTimestep: cfg.NTimestep - 1,
			Reason:           TerminationBoundExceeded,
		}, ErrFixationNotReached
	}
	return &ReplicateResult{
		Trajectory:       traj,
		TerminalTimestep: cfg.NTimestep - 1,
		Reason:           TerminationFixed,
	}, nil
}

// fillRows repeats the terminal counts into every row from start on, keeping
// early-fixating trajectories averageable against full-length ones.
func fillRows(traj *mat.Dense, start int, counts []float64) {
	rows, _ := traj.Dims()
	for t := start; t < rows; t++ {
		traj.SetRow(t, counts)
	}
}

// Simulate runs the configured number of independent replicates in parallel
// and reports the elementwise-average trajectory plus each replicate's
// terminal timestep. ErrFixationNotReached from individual replicates is
// downgraded to a warning; any other error aborts the whole run.
func (s *Simulation) Simulate(ctx context.Context) (*SimulationResult, error) {
	nSims := s.cfg.NSims
	results := make([]*ReplicateResult, nSims)

	// ForSubsystem is not goroutine-safe: derive every replicate stream up
	// front, then hand each stream to exactly one worker.
	rngs := make([]*rand.Rand, nSims)
	for i := range rngs {
		rngs[i] = s.rng.ForSubsystem(SubsystemReplicate(i))
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < nSims; i++ {
		i := i
		g.Go(func() error {
			res, err := s.runReplicate(ctx, i, rngs[i])
			if errors.Is(err, ErrFixationNotReached) {
				logrus.Warnf("[replicate %02d] %v; returning best-effort trajectory", i, err)
				err = nil
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avg := mat.NewDense(s.cfg.NTimestep, s.cfg.NGenotype, nil)
	terminal := make([]int, nSims)
	for i, res := range results {
		avg.Add(avg, res.Trajectory)
		terminal[i] = res.TerminalTimestep
	}
	avg.Scale(1/float64(nSims), avg)

	logrus.Infof("simulation complete: %d replicates, horizon %d timesteps", nSims, s.cfg.NTimestep)
	return &SimulationResult{
		AvgTrajectory:     avg,
		TerminalTimesteps: terminal,
		Replicates:        results,
	}, nil
}
