package sim

import (
	"fmt"

	"github.com/seascape-sim/seascape-sim/sim/pharm"
)

// DeathModel selects how the update step interprets the fitness vector.
type DeathModel int

const (
	// DeathModelDefault draws background-turnover deaths and non-negative
	// daughter-cell births as separate Poisson processes.
	DeathModelDefault DeathModel = iota
	// DeathModelPharmacodynamic interprets the fitness vector as a signed
	// net growth rate: the Poisson draw's sign decides births versus deaths.
	DeathModelPharmacodynamic
)

// ParseDeathModel resolves a death-model name to its variant.
func ParseDeathModel(s string) (DeathModel, error) {
	switch s {
	case "default", "":
		return DeathModelDefault, nil
	case "pharmacodynamic":
		return DeathModelPharmacodynamic, nil
	}
	return 0, fmt.Errorf("unknown death model %q", s)
}

func (m DeathModel) String() string {
	switch m {
	case DeathModelDefault:
		return "default"
	case DeathModelPharmacodynamic:
		return "pharmacodynamic"
	}
	return fmt.Sprintf("DeathModel(%d)", int(m))
}

// Config is the immutable parameter bundle for a simulation run. Build one,
// validate it, and pass it by value; derive variations with WithOverrides
// rather than mutating a shared template.
type Config struct {
	// genotype space
	NAllele   int
	NGenotype int // must equal 2^NAllele

	// biology
	DeathRate  float64 // background turnover per hour
	MutRate    float64 // per-allele mutation probability per division
	DeathModel DeathModel

	// population size control
	InitCounts     []float64 // per-genotype inoculum; nil = 1e6 cells of genotype 0
	UseCarryingCap bool
	CarryingCap    float64
	ConstantPop    bool
	MaxCells       float64 // target total under ConstantPop

	// time
	NTimestep     int     // horizon in timesteps
	TimestepScale float64 // hours per timestep

	// drug exposure
	Curve pharm.CurveConfig

	// passaging
	Passage     bool
	PassageTime float64 // hours between passages
	Dilution    float64

	// termination
	StopCondition bool // stop at fixation of the fittest-at-max-dose genotype

	// replication
	NSims int
}

// DefaultConfig is the standard experiment setup: 16 genotypes over 4
// alleles, hourly timesteps, a daily pharmacokinetic dosing schedule.
func DefaultConfig() Config {
	return Config{
		NAllele:        4,
		NGenotype:      16,
		DeathRate:      0.1,
		MutRate:        1e-9,
		DeathModel:     DeathModelDefault,
		UseCarryingCap: true,
		CarryingCap:    1e8,
		ConstantPop:    false,
		MaxCells:       1e9,
		NTimestep:      1000,
		TimestepScale:  1,
		Curve: pharm.CurveConfig{
			Type:          pharm.Pharm,
			MaxDose:       10,
			TimestepScale: 1,
			KAbs:          0.01,
			KElim:         0.001,
			DoseSchedule:  24,
		},
		Passage:     false,
		PassageTime: 24,
		Dilution:    40,
		NSims:       10,
	}
}

// Validate reports the first configuration error. All curve-type,
// death-model, and genotype/allele consistency problems surface here, before
// any simulation starts.
func (c Config) Validate() error {
	nAllele, err := AlleleCountFor(c.NGenotype)
	if err != nil {
		return err
	}
	if c.NAllele != nAllele {
		return fmt.Errorf("genotype/allele mismatch: %d genotypes require %d alleles, got %d",
			c.NGenotype, nAllele, c.NAllele)
	}
	if c.DeathRate < 0 {
		return fmt.Errorf("death rate must be non-negative, got %f", c.DeathRate)
	}
	if c.MutRate < 0 || c.MutRate > 1 {
		return fmt.Errorf("mutation rate must be in [0,1], got %g", c.MutRate)
	}
	if c.DeathModel != DeathModelDefault && c.DeathModel != DeathModelPharmacodynamic {
		return fmt.Errorf("unknown death model %q", c.DeathModel)
	}
	if c.InitCounts != nil && len(c.InitCounts) != c.NGenotype {
		return fmt.Errorf("init counts length %d does not match %d genotypes", len(c.InitCounts), c.NGenotype)
	}
	if c.UseCarryingCap && c.CarryingCap <= 0 {
		return fmt.Errorf("carrying capacity must be positive, got %f", c.CarryingCap)
	}
	if c.ConstantPop && c.MaxCells <= 0 {
		return fmt.Errorf("max cells must be positive under constant population, got %f", c.MaxCells)
	}
	if c.NTimestep < 2 {
		return fmt.Errorf("horizon must be at least 2 timesteps, got %d", c.NTimestep)
	}
	if c.TimestepScale <= 0 {
		return fmt.Errorf("timestep scale must be positive, got %f", c.TimestepScale)
	}
	if c.Passage {
		if c.PassageTime <= 0 {
			return fmt.Errorf("passage time must be positive, got %f", c.PassageTime)
		}
		if c.Dilution < 1 {
			return fmt.Errorf("dilution factor must be at least 1, got %f", c.Dilution)
		}
	}
	if c.NSims < 1 {
		return fmt.Errorf("replicate count must be at least 1, got %d", c.NSims)
	}
	curve := c.Curve
	curve.TimestepScale = c.TimestepScale
	return curve.Validate()
}

// Override mutates one field of a Config copy inside WithOverrides.
type Override func(*Config)

// WithOverrides returns a copy of the config with the overrides applied.
// The receiver is never modified; slice fields are deep-copied first so a
// shared template can safely seed many runs.
func (c Config) WithOverrides(overrides ...Override) Config {
	next := c
	if c.InitCounts != nil {
		next.InitCounts = make([]float64, len(c.InitCounts))
		copy(next.InitCounts, c.InitCounts)
	}
	for _, ov := range overrides {
		ov(&next)
	}
	return next
}

// initCounts materializes the inoculum: the configured counts, or the
// default of 1e6 cells of the all-susceptible genotype. Under
// constant-population mode the inoculum is rescaled to MaxCells and floored.
func (c Config) initCounts() []float64 {
	counts := make([]float64, c.NGenotype)
	if c.InitCounts == nil {
		counts[0] = 1e6
	} else {
		copy(counts, c.InitCounts)
	}

	if c.ConstantPop {
		total := 0.0
		for _, n := range counts {
			total += n
		}
		if total > 0 {
			for g := range counts {
				counts[g] = float64(int64(counts[g] * c.MaxCells / total))
			}
		}
	}
	return counts
}

// effectiveUseCarryingCap reports whether carrying-capacity attenuation
// applies; constant-population mode pins the size and supersedes it.
func (c Config) effectiveUseCarryingCap() bool {
	return c.UseCarryingCap && !c.ConstantPop
}
