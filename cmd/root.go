package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seascape-sim/seascape-sim/sim"
	"github.com/seascape-sim/seascape-sim/sim/pharm"
)

var (
	// run control
	seed     uint64 // Master seed for curve and replicate RNG streams
	logLevel string // Log verbosity level
	nSims    int    // Number of independent stochastic replicates

	// genotype space and biology
	nAllele    int     // Number of resistance alleles (genotype count is 2^n)
	deathRate  float64 // Background turnover rate per hour
	mutRate    float64 // Per-allele mutation probability per division
	deathModel string  // "default" or "pharmacodynamic"

	// population size control
	initCount      float64 // Inoculum: cells of the all-susceptible genotype
	useCarryingCap bool    // Attenuate growth near the carrying capacity
	carryingCap    float64 // Carrying capacity
	constantPop    bool    // Renormalize the population every timestep
	maxCells       float64 // Constant-population target size

	// time
	nTimestep     int     // Simulation horizon in timesteps
	timestepScale float64 // Hours per timestep

	// drug exposure
	curveType     string  // constant, linear, heaviside, pharm, pulsed
	maxDose       float64 // Peak drug concentration
	slope         float64 // Linear ramp slope (0 = reach max dose at the horizon)
	heavisideStep int     // Heaviside transition timestep
	kAbs          float64 // Absorption rate (overridden by the drug library when set)
	kElim         float64 // Elimination rate (overridden by the drug library when set)
	doseSchedule  float64 // Hours between doses
	probDrop      float64 // Per-dose nonadherence probability (pulsed)
	dwell         bool    // Hold off dosing at the start of the run
	dwellTime     int     // Dwell length in timesteps
	regimenLength int     // Timesteps of active dosing (0 = whole horizon)
	dutyCycle     float64 // Dosed fraction of each schedule period (0 = discrete impulses)

	// passaging
	passage     bool    // Periodically dilute the culture
	passageTime float64 // Hours between passages
	dilution    float64 // Passage dilution factor

	// termination
	stopCondition bool // Stop each replicate at fixation of the fittest genotype

	// seascape source
	drugLibraryPath string  // yaml drug library; empty = random bootstrap seascape
	drugName        string  // Drug to select from the pharmacokinetic library
	nullSeascape    bool    // Replace the seascape with its no-trade-off counterfactual
	nullDose        float64 // Reference concentration for the null seascape
	druglessMin     float64 // Random seascape: drugless growth rate limits
	druglessMax     float64
	ic50Min         float64 // Random seascape: log10 IC50 limits
	ic50Max         float64

	// consumer-side survival predicate
	survivalThreshold float64 // A replicate survived if its terminal population exceeds this
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "seascape-sim",
	Short: "Stochastic simulator for microbial evolution under drug seascapes",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evolutionary simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig()
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		prng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
		sea, cfg, err := buildSeascape(prng, cfg)
		if err != nil {
			logrus.Fatalf("Unable to build seascape: %v", err)
		}

		logrus.Infof("Starting simulation: %d genotypes, %d timesteps, curve=%s, max dose=%g, %d replicates",
			cfg.NGenotype, cfg.NTimestep, cfg.Curve.Type, cfg.Curve.MaxDose, cfg.NSims)

		s, err := sim.NewSimulation(cfg, sea, seed)
		if err != nil {
			logrus.Fatalf("Unable to initialize simulation: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		res, err := s.Simulate(ctx)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		metrics := sim.Summarize(res)
		metrics.Print()

		survived := 0
		for _, pop := range metrics.TerminalPopulation {
			if pop > survivalThreshold {
				survived++
			}
		}
		logrus.Infof("Survival: %d/%d replicates above %.3g cells (%.1f%%), wall time %v",
			survived, cfg.NSims, survivalThreshold,
			100*float64(survived)/float64(cfg.NSims), time.Since(startTime).Round(time.Millisecond))
	},
}

// buildConfig assembles and validates the simulation config from CLI flags.
func buildConfig() (sim.Config, error) {
	ct, err := pharm.ParseCurveType(curveType)
	if err != nil {
		return sim.Config{}, err
	}
	dm, err := sim.ParseDeathModel(deathModel)
	if err != nil {
		return sim.Config{}, err
	}

	initCounts := make([]float64, 1<<nAllele)
	initCounts[0] = initCount

	cfg := sim.Config{
		NAllele:        nAllele,
		NGenotype:      1 << nAllele,
		DeathRate:      deathRate,
		MutRate:        mutRate,
		DeathModel:     dm,
		InitCounts:     initCounts,
		UseCarryingCap: useCarryingCap,
		CarryingCap:    carryingCap,
		ConstantPop:    constantPop,
		MaxCells:       maxCells,
		NTimestep:      nTimestep,
		TimestepScale:  timestepScale,
		Curve: pharm.CurveConfig{
			Type:          ct,
			MaxDose:       maxDose,
			TimestepScale: timestepScale,
			Slope:         slope,
			HeavisideStep: heavisideStep,
			KAbs:          kAbs,
			KElim:         kElim,
			DoseSchedule:  doseSchedule,
			ProbDrop:      probDrop,
			Dwell:         dwell,
			DwellTime:     dwellTime,
			RegimenLength: regimenLength,
			DutyCycle:     dutyCycle,
		},
		Passage:       passage,
		PassageTime:   passageTime,
		Dilution:      dilution,
		StopCondition: stopCondition,
		NSims:         nSims,
	}
	return cfg, cfg.Validate()
}

// buildSeascape sources dose-response parameters from the yaml drug library
// when one is given, or bootstraps a random seascape otherwise, then applies
// the null-seascape counterfactual if requested. Pharmacokinetic parameters
// for the selected drug override the k_abs/k_elim flags in the returned
// config.
func buildSeascape(prng *sim.PartitionedRNG, cfg sim.Config) (*sim.Seascape, sim.Config, error) {
	var sea *sim.Seascape

	if drugLibraryPath != "" {
		lib, err := LoadDrugLibrary(drugLibraryPath)
		if err != nil {
			return nil, cfg, err
		}
		sea, err = lib.Seascape()
		if err != nil {
			return nil, cfg, err
		}
		if cfg.Curve.Type == pharm.Pharm || cfg.Curve.Type == pharm.Pulsed {
			pk, err := lib.Pharmacokinetics(drugName)
			if err != nil {
				return nil, cfg, err
			}
			cfg = cfg.WithOverrides(func(c *sim.Config) {
				c.Curve.KAbs = pk.KAbs
				c.Curve.KElim = pk.KElim
			})
			logrus.Infof("Using drug %q from library: k_abs=%g, k_elim=%g", pk.Name, pk.KAbs, pk.KElim)
		}
	} else {
		var err error
		sea, err = sim.RandomSeascape(prng.ForSubsystem(sim.SubsystemSeascape), cfg.NGenotype,
			[2]float64{druglessMin, druglessMax}, [2]float64{ic50Min, ic50Max})
		if err != nil {
			return nil, cfg, err
		}
		logrus.Debugf("Bootstrapped random seascape over %d genotypes", cfg.NGenotype)
	}

	if nullSeascape {
		sea = sea.Null(nullDose)
		logrus.Infof("Applied null seascape at reference concentration %g", nullDose)
	}
	return sea, cfg, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Uint64Var(&seed, "seed", 42, "Master seed for all RNG streams")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&nSims, "n-sims", 10, "Number of independent stochastic replicates")

	// genotype space and biology
	runCmd.Flags().IntVar(&nAllele, "n-allele", 4, "Number of resistance alleles (2^n genotypes)")
	runCmd.Flags().Float64Var(&deathRate, "death-rate", 0.1, "Background turnover rate per hour")
	runCmd.Flags().Float64Var(&mutRate, "mut-rate", 1e-9, "Per-allele mutation probability per division")
	runCmd.Flags().StringVar(&deathModel, "death-model", "default", "Death model (default, pharmacodynamic)")

	// population size control
	runCmd.Flags().Float64Var(&initCount, "init-count", 1e6, "Inoculum size (cells of the all-susceptible genotype)")
	runCmd.Flags().BoolVar(&useCarryingCap, "carrying-cap", true, "Attenuate growth near the carrying capacity")
	runCmd.Flags().Float64Var(&carryingCap, "carrying-cap-size", 1e8, "Carrying capacity in cells")
	runCmd.Flags().BoolVar(&constantPop, "constant-pop", false, "Renormalize the population to a constant size every timestep")
	runCmd.Flags().Float64Var(&maxCells, "max-cells", 1e9, "Constant-population target size")

	// time
	runCmd.Flags().IntVar(&nTimestep, "n-timestep", 1000, "Simulation horizon in timesteps")
	runCmd.Flags().Float64Var(&timestepScale, "timestep-scale", 1, "Hours per timestep")

	// drug exposure
	runCmd.Flags().StringVar(&curveType, "curve-type", "pharm", "Drug curve type (constant, linear, heaviside, pharm, pulsed)")
	runCmd.Flags().Float64Var(&maxDose, "max-dose", 10, "Peak drug concentration")
	runCmd.Flags().Float64Var(&slope, "slope", 0, "Linear ramp slope per timestep (0 = reach max dose at the horizon)")
	runCmd.Flags().IntVar(&heavisideStep, "heaviside-step", 0, "Heaviside transition timestep")
	runCmd.Flags().Float64Var(&kAbs, "k-abs", 0.01, "Absorption rate for the one-compartment model")
	runCmd.Flags().Float64Var(&kElim, "k-elim", 0.001, "Elimination rate for the one-compartment model")
	runCmd.Flags().Float64Var(&doseSchedule, "dose-schedule", 24, "Hours between doses")
	runCmd.Flags().Float64Var(&probDrop, "prob-drop", 0, "Probability of forgetting an individual dose (pulsed)")
	runCmd.Flags().BoolVar(&dwell, "dwell", false, "Hold off dosing at the start of the run")
	runCmd.Flags().IntVar(&dwellTime, "dwell-time", 48, "Dwell length in timesteps")
	runCmd.Flags().IntVar(&regimenLength, "regimen-length", 0, "Timesteps of active dosing (0 = whole horizon)")
	runCmd.Flags().Float64Var(&dutyCycle, "duty-cycle", 0, "Dosed fraction of each schedule period (0 = discrete impulses)")

	// passaging
	runCmd.Flags().BoolVar(&passage, "passage", false, "Periodically dilute the culture (serial transfer)")
	runCmd.Flags().Float64Var(&passageTime, "passage-time", 24, "Hours between passages")
	runCmd.Flags().Float64Var(&dilution, "dilution", 40, "Passage dilution factor")

	// termination
	runCmd.Flags().BoolVar(&stopCondition, "stop-condition", false, "Stop each replicate at fixation of the fittest genotype")

	// seascape source
	runCmd.Flags().StringVar(&drugLibraryPath, "drug-library", "", "Path to a yaml drug library (empty = random seascape)")
	runCmd.Flags().StringVar(&drugName, "drug", "", "Drug to select from the pharmacokinetic library")
	runCmd.Flags().BoolVar(&nullSeascape, "null-seascape", false, "Replace the seascape with its no-trade-off counterfactual")
	runCmd.Flags().Float64Var(&nullDose, "null-seascape-dose", 0, "Reference concentration for the null seascape")
	runCmd.Flags().Float64Var(&druglessMin, "drugless-min", 1, "Random seascape: minimum drugless growth rate")
	runCmd.Flags().Float64Var(&druglessMax, "drugless-max", 1.5, "Random seascape: maximum drugless growth rate")
	runCmd.Flags().Float64Var(&ic50Min, "ic50-min", -3, "Random seascape: minimum log10 IC50")
	runCmd.Flags().Float64Var(&ic50Max, "ic50-max", 3, "Random seascape: maximum log10 IC50")

	// survival
	runCmd.Flags().Float64Var(&survivalThreshold, "survival-threshold", 1, "Terminal population above which a replicate counts as survived")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
