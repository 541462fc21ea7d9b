package model

import (
	"fmt"
	"math"
	"strings"
)

// AllocationRequest is the immutable input of a single allocation.
type AllocationRequest struct {
	BudgetKW float64 `json:"budget_kw"`
	Devices  Fleet   `json:"devices"`
}

// AllocationResult carries the per class allocation and its aggregates.
type AllocationResult struct {
	BudgetKW     float64             `json:"budget_kw"`
	Scores       [NumClasses]float64 `json:"scores"`
	CapacitiesKW [NumClasses]float64 `json:"capacities_kw"`
	AllocKW      [NumClasses]float64 `json:"alloc_kw"`
	AllocTotalKW float64             `json:"alloc_total_kw"`
	UnmetKW      float64             `json:"unmet_kw"`
}

// NewAllocationResult derives the totals from an allocation vector in model
// order. Vectors shorter than NumClasses leave the remaining classes at zero.
func NewAllocationResult(budgetKW float64, scores, caps, alloc []float64) AllocationResult {
	res := AllocationResult{BudgetKW: budgetKW}
	copy(res.Scores[:], scores)
	copy(res.CapacitiesKW[:], caps)
	copy(res.AllocKW[:], alloc)
	for _, a := range res.AllocKW {
		res.AllocTotalKW += a
	}
	res.UnmetKW = math.Max(0, budgetKW-res.AllocTotalKW)
	return res
}

// PercentOffload is the share of the budget that was placed. A zero budget is
// fully satisfied by definition.
func (r AllocationResult) PercentOffload() float64 {
	if r.BudgetKW <= 0 {
		return 1.0
	}
	return r.AllocTotalKW / r.BudgetKW
}

// ByName returns a per class map of the given vector keyed by class name.
func ByName(v [NumClasses]float64) map[string]float64 {
	out := make(map[string]float64, NumClasses)
	for i, x := range v {
		out[DeviceClass(i).String()] = x
	}
	return out
}

// BudgetUnit is the unit a caller expresses the budget in.
type BudgetUnit string

const (
	UnitKW BudgetUnit = "kw"
	UnitW  BudgetUnit = "w"
)

// ToKW converts v expressed in u into kilowatts. An empty unit means kW.
func (u BudgetUnit) ToKW(v float64) (float64, error) {
	switch BudgetUnit(strings.ToLower(string(u))) {
	case UnitKW, "":
		return v, nil
	case UnitW:
		return v / 1000, nil
	default:
		return 0, fmt.Errorf("unknown budget unit %q", string(u))
	}
}
