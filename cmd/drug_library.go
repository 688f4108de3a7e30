package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seascape-sim/seascape-sim/sim"
)

// DrugRecord is one pharmacokinetic library entry: the absorption/elimination
// parameter pair for a drug's one-compartment model.
type DrugRecord struct {
	Name  string  `yaml:"name"`
	KAbs  float64 `yaml:"k_abs"`
	KElim float64 `yaml:"k_elim"`
}

// GenotypeRecord is one pharmacodynamic library entry: a genotype's
// dose-response parameters. Hill may be omitted (defaults to 1).
type GenotypeRecord struct {
	Genotype     int     `yaml:"genotype"`
	DruglessRate float64 `yaml:"drugless_rate"`
	IC50         float64 `yaml:"ic50"`
	Hill         float64 `yaml:"hill"`
}

// DrugLibrary is the yaml drug-library file: pharmacokinetic records per
// drug plus pharmacodynamic dose-response records per genotype.
type DrugLibrary struct {
	Version   string           `yaml:"version"`
	Drugs     []DrugRecord     `yaml:"drugs"`
	Genotypes []GenotypeRecord `yaml:"genotypes"`
}

// LoadDrugLibrary parses a drug-library yaml file with strict field checking,
// so a typo in a record key is an error rather than a silently ignored field.
func LoadDrugLibrary(path string) (DrugLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DrugLibrary{}, fmt.Errorf("reading drug library: %w", err)
	}
	var lib DrugLibrary
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&lib); err != nil {
		return DrugLibrary{}, fmt.Errorf("parsing drug library %s: %w", path, err)
	}
	return lib, nil
}

// Pharmacokinetics looks up the absorption/elimination pair for a drug.
// An empty name selects the library's first drug.
func (l DrugLibrary) Pharmacokinetics(name string) (DrugRecord, error) {
	if len(l.Drugs) == 0 {
		return DrugRecord{}, fmt.Errorf("drug library has no pharmacokinetic records")
	}
	if name == "" {
		return l.Drugs[0], nil
	}
	for _, d := range l.Drugs {
		if d.Name == name {
			return d, nil
		}
	}
	return DrugRecord{}, fmt.Errorf("unknown drug %q in library", name)
}

// Seascape assembles the library's pharmacodynamic records into a seascape.
// The records must cover genotypes 0..N-1 exactly once with N a power of two.
func (l DrugLibrary) Seascape() (*sim.Seascape, error) {
	n := len(l.Genotypes)
	if n == 0 {
		return nil, fmt.Errorf("drug library has no pharmacodynamic records")
	}

	genotypes := make([]sim.DoseResponse, n)
	seen := make([]bool, n)
	for _, rec := range l.Genotypes {
		if rec.Genotype < 0 || rec.Genotype >= n {
			return nil, fmt.Errorf("genotype %d out of range [0,%d)", rec.Genotype, n)
		}
		if seen[rec.Genotype] {
			return nil, fmt.Errorf("duplicate record for genotype %d", rec.Genotype)
		}
		seen[rec.Genotype] = true
		genotypes[rec.Genotype] = sim.DoseResponse{
			DruglessRate: rec.DruglessRate,
			IC50:         rec.IC50,
			Hill:         rec.Hill,
		}
	}
	return sim.NewSeascape(genotypes)
}
