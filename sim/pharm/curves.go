// Package pharm generates drug-concentration curves: the mapping from
// timestep to drug concentration that drives fitness seascape evaluation.
//
// Curves are generated once per run (or regenerated when dosing parameters
// change) and treated as read-only by the stochastic loop. The only source of
// randomness here is nonadherence sampling for pulsed dosing, drawn from an
// injected RNG so regeneration is reproducible under an external seed.
package pharm

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// CurveType selects the concentration-vs-time model.
type CurveType int

const (
	// Constant holds the concentration at MaxDose for the whole horizon.
	Constant CurveType = iota
	// Linear ramps from 0 toward MaxDose.
	Linear
	// Heaviside is 0 until HeavisideStep, then MaxDose.
	Heaviside
	// Pharm convolves a dosing-impulse train with a one-compartment
	// pharmacokinetic response kernel.
	Pharm
	// Pulsed is Pharm with each scheduled impulse independently dropped
	// with probability ProbDrop (patient nonadherence).
	Pulsed
)

// ParseCurveType resolves a curve-type name to its variant.
func ParseCurveType(s string) (CurveType, error) {
	switch s {
	case "constant":
		return Constant, nil
	case "linear":
		return Linear, nil
	case "heaviside":
		return Heaviside, nil
	case "pharm":
		return Pharm, nil
	case "pulsed":
		return Pulsed, nil
	}
	return 0, fmt.Errorf("unknown curve type %q", s)
}

func (t CurveType) String() string {
	switch t {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case Heaviside:
		return "heaviside"
	case Pharm:
		return "pharm"
	case Pulsed:
		return "pulsed"
	}
	return fmt.Sprintf("CurveType(%d)", int(t))
}

// CurveConfig holds every parameter the curve generators read. Immutable once
// built; Generate never mutates it.
type CurveConfig struct {
	Type          CurveType
	MaxDose       float64 // peak concentration
	TimestepScale float64 // hours per timestep
	Slope         float64 // linear: concentration increase per timestep (0 = reach MaxDose at the horizon)
	HeavisideStep int     // heaviside: first timestep at MaxDose
	KAbs          float64 // absorption rate (1/hour)
	KElim         float64 // elimination rate (1/hour)
	DoseSchedule  float64 // hours between scheduled doses
	ProbDrop      float64 // pulsed: probability an individual dose is forgotten
	Dwell         bool    // hold off dosing for DwellTime timesteps
	DwellTime     int
	RegimenLength int     // timesteps of active dosing after the dwell (0 = rest of horizon)
	DutyCycle     float64 // on/off regimen: dosed fraction of each DoseSchedule period (0 = discrete impulses)
}

// Validate checks the parameters needed by the configured curve type.
func (c CurveConfig) Validate() error {
	if c.MaxDose < 0 {
		return fmt.Errorf("max dose must be non-negative, got %f", c.MaxDose)
	}
	if c.TimestepScale <= 0 {
		return fmt.Errorf("timestep scale must be positive, got %f", c.TimestepScale)
	}
	switch c.Type {
	case Constant, Linear:
	case Heaviside:
		if c.HeavisideStep < 0 {
			return fmt.Errorf("heaviside step must be non-negative, got %d", c.HeavisideStep)
		}
	case Pharm, Pulsed:
		if c.KAbs <= 0 || c.KElim <= 0 {
			return fmt.Errorf("absorption and elimination rates must be positive, got k_abs=%f k_elim=%f", c.KAbs, c.KElim)
		}
		if c.DoseSchedule <= 0 {
			return fmt.Errorf("dose schedule must be positive, got %f", c.DoseSchedule)
		}
		if c.ProbDrop < 0 || c.ProbDrop > 1 {
			return fmt.Errorf("drop probability must be in [0,1], got %f", c.ProbDrop)
		}
		if c.DutyCycle < 0 || c.DutyCycle > 1 {
			return fmt.Errorf("duty cycle must be in [0,1], got %f", c.DutyCycle)
		}
	default:
		return fmt.Errorf("unknown curve type %q", c.Type)
	}
	return nil
}

// Generate produces the concentration curve for the horizon, plus the dosing
// impulse train for the pharmacokinetic types (nil for the analytic types).
// rng is consulted only for Pulsed nonadherence draws.
func Generate(cfg CurveConfig, horizon int, rng *rand.Rand) (curve, impulses []float64, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if horizon <= 0 {
		return nil, nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	switch cfg.Type {
	case Constant:
		curve = make([]float64, horizon)
		for t := range curve {
			curve[t] = cfg.MaxDose
		}
	case Linear:
		slope := cfg.Slope
		if slope == 0 && horizon > 1 {
			slope = cfg.MaxDose / float64(horizon-1)
		}
		curve = make([]float64, horizon)
		for t := range curve {
			curve[t] = math.Min(cfg.MaxDose, slope*float64(t))
		}
	case Heaviside:
		curve = make([]float64, horizon)
		for t := cfg.HeavisideStep; t < horizon; t++ {
			curve[t] = cfg.MaxDose
		}
	case Pharm:
		impulses = dosingRegimen(cfg, horizon)
		curve = Convolve(impulses, cfg, horizon)
	case Pulsed:
		if rng == nil {
			return nil, nil, fmt.Errorf("pulsed curve generation requires an RNG")
		}
		impulses = dosingRegimen(cfg, horizon)
		for t, u := range impulses {
			if u > 0 && rng.Float64() < cfg.ProbDrop {
				impulses[t] = 0
			}
		}
		curve = Convolve(impulses, cfg, horizon)
	}
	return curve, impulses, nil
}

// dosingRegimen selects the dosing pattern for the pharmacokinetic types:
// discrete scheduled impulses, or a rectangular on/off regimen when a duty
// cycle is configured.
func dosingRegimen(cfg CurveConfig, horizon int) []float64 {
	if cfg.DutyCycle > 0 {
		return OnOff(cfg, horizon, cfg.DutyCycle)
	}
	return ImpulseTrain(cfg, horizon)
}

// ImpulseTrain lays down one unit impulse every DoseSchedule hours, starting
// after the dwell (if any) and stopping after RegimenLength timesteps when a
// finite regimen is configured.
func ImpulseTrain(cfg CurveConfig, horizon int) []float64 {
	gap := int(math.Round(cfg.DoseSchedule / cfg.TimestepScale))
	if gap < 1 {
		gap = 1
	}

	start := 0
	if cfg.Dwell {
		start = cfg.DwellTime
	}
	end := horizon
	if cfg.RegimenLength > 0 && start+cfg.RegimenLength < end {
		end = start + cfg.RegimenLength
	}

	u := make([]float64, horizon)
	for t := start; t < end; t += gap {
		u[t] = 1
	}
	return u
}

// OnOff generates a rectangular dosing regimen: within each DoseSchedule
// period the drug is "on" for the given duty-cycle fraction. Returns a 0/1
// sequence on the timestep grid.
func OnOff(cfg CurveConfig, horizon int, dutyCycle float64) []float64 {
	gap := int(math.Round(cfg.DoseSchedule / cfg.TimestepScale))
	if gap < 1 {
		gap = 1
	}
	onSteps := int(math.Round(dutyCycle * float64(gap)))

	u := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		if t%gap < onSteps {
			u[t] = 1
		}
	}
	return u
}

// OneCompartment evaluates the one-compartment pharmacokinetic response to a
// single dose at time 0, normalized so the peak concentration equals cMax.
// t is in hours.
func OneCompartment(t, kAbs, kElim, cMax float64) float64 {
	if t < 0 {
		return 0
	}
	if math.Abs(kAbs-kElim) < 1e-12 {
		// limit k_abs -> k_elim: response proportional to t*exp(-k*t), peak at 1/k
		k := kElim
		return cMax * k * t * math.Exp(1-k*t)
	}
	tPeak := math.Log(kAbs/kElim) / (kAbs - kElim)
	norm := math.Exp(-kElim*tPeak) - math.Exp(-kAbs*tPeak)
	return cMax * (math.Exp(-kElim*t) - math.Exp(-kAbs*t)) / norm
}

// Convolve convolves a dosing-impulse train with the one-compartment response
// kernel, truncated to the horizon. Overlapping doses stack, so the curve can
// transiently exceed MaxDose under fast dosing schedules.
func Convolve(u []float64, cfg CurveConfig, horizon int) []float64 {
	kernel := make([]float64, horizon)
	for k := range kernel {
		kernel[k] = OneCompartment(float64(k)*cfg.TimestepScale, cfg.KAbs, cfg.KElim, cfg.MaxDose)
	}

	curve := make([]float64, horizon)
	for t := 0; t < horizon; t++ {
		acc := 0.0
		for s := 0; s <= t; s++ {
			if u[s] != 0 {
				acc += u[s] * kernel[t-s]
			}
		}
		curve[t] = acc
	}
	return curve
}
