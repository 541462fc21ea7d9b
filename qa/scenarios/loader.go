// Package scenarios replays YAML allocation scenarios against the configured
// allocators and reports deviations from the expected outcome.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTolerance is the absolute kW deviation accepted per value.
const DefaultTolerance = 1e-6

// Expected is the outcome a scenario must reproduce.
type Expected struct {
	Alloc   []float64 `yaml:"alloc"`
	UnmetKW float64   `yaml:"unmet_kw"`
}

// Scenario is a single allocation case.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Strategies  []string  `yaml:"strategies,omitempty"`
	BudgetKW    float64   `yaml:"budget_kw"`
	Capacities  []float64 `yaml:"capacities"`
	Scores      []float64 `yaml:"scores"`
	Tolerance   float64   `yaml:"tolerance,omitempty"`
	Expected    Expected  `yaml:"expected"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	if len(sc.Strategies) == 0 {
		sc.Strategies = []string{"waterfill"}
	}
	if sc.Tolerance <= 0 {
		sc.Tolerance = DefaultTolerance
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if len(s.Capacities) != len(s.Scores) {
		return fmt.Errorf("%d capacities for %d scores", len(s.Capacities), len(s.Scores))
	}
	if len(s.Expected.Alloc) != len(s.Capacities) {
		return fmt.Errorf("expected alloc has %d entries for %d classes", len(s.Expected.Alloc), len(s.Capacities))
	}
	return nil
}
