package builder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/offload/core/model"
)

func TestDeriveCounts(t *testing.T) {
	c := DeriveCounts(1000, 5)
	want := Counts{
		model.CompactMobile:        10,
		model.PortableComputer:     7,
		model.FixedComputer:        4,
		model.InfrastructureSignal: 5,
		model.HouseholdAppliance:   2,
	}
	if c != want {
		t.Fatalf("expected %v got %v", want, c)
	}
}

func TestDeriveCountsRoundsHalfToEven(t *testing.T) {
	// 1400/400 = 3.5 rounds to 4, 1000/400 = 2.5 rounds to 2
	assert.Equal(t, 4, DeriveCounts(1400, 0)[model.HouseholdAppliance])
	assert.Equal(t, 2, DeriveCounts(1000, 0)[model.HouseholdAppliance])
	assert.Equal(t, 2, DeriveCounts(0, 2.5)[model.InfrastructureSignal])
}

func TestDeriveCountsClampsNegative(t *testing.T) {
	if c := DeriveCounts(-500, -3); c != (Counts{}) {
		t.Fatalf("expected all zero counts got %v", c)
	}
}

func TestDeriveCountsSaturates(t *testing.T) {
	c := DeriveCounts(1e30, 1e25)
	for i, n := range c {
		if n < 0 || n > model.MaxCount {
			t.Fatalf("class %d count %d out of range", i, n)
		}
	}
	assert.Equal(t, model.MaxCount, c[model.CompactMobile])
	assert.Equal(t, model.MaxCount, c[model.InfrastructureSignal])
	assert.Equal(t, 0, DeriveCounts(math.Inf(1), math.NaN())[model.InfrastructureSignal])
}

func TestDeriveCountsComputerShares(t *testing.T) {
	c := DeriveCounts(10_000, 0)
	assert.Equal(t, 68, c[model.PortableComputer])
	assert.Equal(t, 37, c[model.FixedComputer])
	assert.Equal(t, 100, c[model.CompactMobile])
}

func TestSamplerRanges(t *testing.T) {
	s := NewSeededSampler(42)
	for i := 0; i < 200; i++ {
		for _, c := range model.Classes {
			w, a := s.Sample(c)
			p := Profiles[c]
			if w < p.AvgPowerW.Min || w > p.AvgPowerW.Max {
				t.Fatalf("%s power %v outside %v", c, w, p.AvgPowerW)
			}
			if a < p.Availability.Min || a > p.Availability.Max {
				t.Fatalf("%s availability %v outside %v", c, a, p.Availability)
			}
		}
	}
}

func TestFromPopulationReproducible(t *testing.T) {
	a := FromPopulation(1000, 5, 3, NewSeededSampler(7))
	b := FromPopulation(1000, 5, 3, NewSeededSampler(7))
	require.Equal(t, a, b)

	c := FromPopulation(1000, 5, 3, NewSeededSampler(8))
	assert.NotEqual(t, a.Devices, c.Devices)

	assert.Equal(t, 3.0, a.BudgetKW)
	assert.Equal(t, 10, a.Devices[model.CompactMobile].Count)
	assert.Equal(t, 5, a.Devices[model.InfrastructureSignal].Count)
}

func TestFromPopulationCapacityIgnoresAvailability(t *testing.T) {
	req := FromPopulation(10000, 0, 1, NewSeededSampler(1))
	d := req.Devices[model.FixedComputer]
	assert.InDelta(t, float64(d.Count)*d.AvgPowerW/1000, d.CapacityKW(), 1e-12)
}

func TestFromRowClamps(t *testing.T) {
	var f model.Fleet
	f[model.CompactMobile] = model.DeviceState{Count: -4, AvgPowerW: -1, Availability: 0.5}
	f[model.FixedComputer] = model.DeviceState{Count: 3, AvgPowerW: 200, Availability: 0.4}
	req := FromRow(-2, f)
	assert.Equal(t, 0.0, req.BudgetKW)
	assert.Equal(t, 0, req.Devices[model.CompactMobile].Count)
	assert.Equal(t, 0.0, req.Devices[model.CompactMobile].AvgPowerW)
	assert.InDelta(t, 0.6, req.Devices[model.FixedComputer].CapacityKW(), 1e-12)
}
