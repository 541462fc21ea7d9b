package builder

import (
	"math"

	"github.com/kilianp07/offload/core/model"
)

// FromPopulation assembles a request from a population figure. Classes are
// sampled in model order so a seeded sampler yields the same request.
func FromPopulation(population, signalCount, budgetKW float64, s *Sampler) model.AllocationRequest {
	if s == nil {
		s = NewSampler(nil)
	}
	counts := DeriveCounts(population, signalCount)
	req := model.AllocationRequest{BudgetKW: math.Max(0, budgetKW)}
	for _, c := range model.Classes {
		w, a := s.Sample(c)
		req.Devices[c] = model.DeviceState{Count: counts[c], AvgPowerW: w, Availability: a}
	}
	return req
}

// FromRow assembles a request from explicit per class attributes. Negative
// counts and power are clamped to zero.
func FromRow(budgetKW float64, devices model.Fleet) model.AllocationRequest {
	req := model.AllocationRequest{BudgetKW: math.Max(0, budgetKW)}
	for i, d := range devices {
		req.Devices[i] = model.DeviceState{
			Count:        max(0, d.Count),
			AvgPowerW:    math.Max(0, d.AvgPowerW),
			Availability: d.Availability,
		}
	}
	return req
}
