package builder

import (
	"math"

	"github.com/kilianp07/offload/core/model"
)

// Ratios used to derive counts from population.
const (
	InhabitantsPerPhone     = 100.0
	InhabitantsPerAppliance = 400.0
	// LaptopShare and DesktopShare are computers per ComputerBase inhabitants.
	ComputerBase = 100.0
	LaptopShare  = 0.68
	DesktopShare = 0.37
)

// Counts holds the number of devices per class in model order.
type Counts [model.NumClasses]int

// DeriveCounts computes device counts from a population and an independent
// traffic signal count. Negative inputs are clamped to zero, counts saturate
// at model.MaxCount and halves round to the nearest even integer.
func DeriveCounts(population, signalCount float64) Counts {
	p := math.Max(0, population)
	var c Counts
	c[model.CompactMobile] = roundCount(p / InhabitantsPerPhone)
	c[model.PortableComputer] = roundCount(p * LaptopShare / ComputerBase)
	c[model.FixedComputer] = roundCount(p * DesktopShare / ComputerBase)
	c[model.InfrastructureSignal] = roundCount(signalCount)
	c[model.HouseholdAppliance] = roundCount(p / InhabitantsPerAppliance)
	return c
}

// ByName returns the counts keyed by class name.
func (c Counts) ByName() map[string]int {
	out := make(map[string]int, model.NumClasses)
	for i, n := range c {
		out[model.DeviceClass(i).String()] = n
	}
	return out
}

func roundCount(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= model.MaxCount:
		return model.MaxCount
	}
	return int(math.RoundToEven(v))
}
