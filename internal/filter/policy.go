package filter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bcinsights/bcinsights/internal/dataset"
)

// Policy holds the defaults applied to fields the user left unselected.
type Policy struct {
	MinYear   int
	MaxYear   int
	Denylists map[string][]string
}

// DefaultPolicy returns the built-in year bounds and denylists.
func DefaultPolicy() Policy {
	return Policy{
		MinYear: 1975,
		MaxYear: 2021,
		Denylists: map[string][]string{
			dataset.ColPathologicN: {"Unknown", "nan", "N1c", "N0 (mol+)", "N3c"},
			dataset.ColPathologicM: {"Unknown", "nan"},
			dataset.ColPathologicT: {"Unknown", "nan", "T4d", "T2b", "T3a", "T2a"},
			dataset.ColDiagnosis: {
				"Not Reported",
				"Tubular adenocarcinoma",
				"Basal cell carcinoma, NOS",
				"Phyllodes tumor, malignant",
				"Large cell neuroendocrine carcinoma",
				"Pleomorphic carcinoma",
				"Carcinoma, NOS",
			},
		},
	}
}

// Denylist returns the excluded values for a field.
func (p Policy) Denylist(field string) []string {
	return p.Denylists[field]
}

// PolicyFile is the YAML root of a policy pack.
type PolicyFile struct {
	Years struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"years"`
	Denylists map[string][]string `yaml:"denylists"`
}

// LoadPolicy layers a YAML policy pack over DefaultPolicy. An empty path or a
// missing file yields the defaults. Fields absent from the pack keep their
// default denylist; a field listed with no values disables its denylist.
func LoadPolicy(path string, logger *slog.Logger) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("filter policy pack not found, using defaults", "path", path)
			return policy, nil
		}
		return Policy{}, err
	}

	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse filter policy %s: %w", path, err)
	}

	if file.Years.Min != 0 {
		policy.MinYear = file.Years.Min
	}
	if file.Years.Max != 0 {
		policy.MaxYear = file.Years.Max
	}
	if policy.MinYear > policy.MaxYear {
		return Policy{}, fmt.Errorf("filter policy %s: year bounds %d..%d are inverted", path, policy.MinYear, policy.MaxYear)
	}
	for field, values := range file.Denylists {
		policy.Denylists[field] = values
	}

	logger.Info("filter policy pack loaded", "path", path, "fields", len(file.Denylists))
	return policy, nil
}

// WithYears returns a copy of p with the given year bounds, ignoring zeros.
// It fails when the resulting range is inverted.
func (p Policy) WithYears(minYear, maxYear int) (Policy, error) {
	if minYear != 0 {
		p.MinYear = minYear
	}
	if maxYear != 0 {
		p.MaxYear = maxYear
	}
	if p.MinYear > p.MaxYear {
		return Policy{}, fmt.Errorf("filter policy: year bounds %d..%d are inverted", p.MinYear, p.MaxYear)
	}
	return p, nil
}
