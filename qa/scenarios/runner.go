package scenarios

import (
	"fmt"
	"math"

	"github.com/kilianp07/offload/core/allocation"
	"github.com/kilianp07/offload/core/factory"
)

// Report is the outcome of one scenario under one strategy.
type Report struct {
	Scenario   string
	Strategy   string
	Alloc      []float64
	UnmetKW    float64
	Mismatches []string
}

// Passed reports whether the run matched the expectation.
func (r Report) Passed() bool { return len(r.Mismatches) == 0 }

// RunAll executes sc with every strategy it lists.
func RunAll(sc *Scenario) ([]Report, error) {
	reports := make([]Report, 0, len(sc.Strategies))
	for _, name := range sc.Strategies {
		alloc, err := allocation.New(factory.ModuleConfig{Type: name})
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		rep, err := Run(sc, alloc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Run executes sc with a single allocator.
func Run(sc *Scenario, a allocation.Allocator) (Report, error) {
	rep := Report{Scenario: sc.Name, Strategy: a.Name()}
	alloc, err := a.Allocate(sc.Scores, sc.Capacities, sc.BudgetKW)
	if err != nil {
		return rep, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	rep.Alloc = alloc

	var total float64
	for _, x := range alloc {
		total += x
	}
	rep.UnmetKW = math.Max(0, sc.BudgetKW-total)

	tol := sc.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	for i, want := range sc.Expected.Alloc {
		if math.Abs(alloc[i]-want) > tol {
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("class %d: alloc %.6f, want %.6f", i, alloc[i], want))
		}
		if alloc[i] > math.Max(0, sc.Capacities[i])+tol {
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("class %d: alloc %.6f above capacity %.6f", i, alloc[i], sc.Capacities[i]))
		}
	}
	if math.Abs(rep.UnmetKW-sc.Expected.UnmetKW) > tol {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("unmet %.6f, want %.6f", rep.UnmetKW, sc.Expected.UnmetKW))
	}
	return rep, nil
}
