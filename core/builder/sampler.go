package builder

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/offload/core/model"
)

// Range is a closed interval for uniform sampling.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Profile is the sampling envelope of one device class.
type Profile struct {
	AvgPowerW    Range `json:"avg_power_w"`
	Availability Range `json:"availability"`
}

// Profiles holds the per class sampling ranges in model order.
var Profiles = [model.NumClasses]Profile{
	model.CompactMobile:        {AvgPowerW: Range{0.5, 3}, Availability: Range{0.2, 0.3}},
	model.PortableComputer:     {AvgPowerW: Range{30, 200}, Availability: Range{0.2, 0.5}},
	model.FixedComputer:        {AvgPowerW: Range{100, 500}, Availability: Range{0.3, 0.6}},
	model.InfrastructureSignal: {AvgPowerW: Range{5, 30}, Availability: Range{0.8, 1.0}},
	model.HouseholdAppliance:   {AvgPowerW: Range{5, 10}, Availability: Range{0.5, 0.9}},
}

// Sampler draws per class attributes from Profiles. It is not safe for
// concurrent use; create one per request.
type Sampler struct {
	power [model.NumClasses]distuv.Uniform
	avail [model.NumClasses]distuv.Uniform
}

// NewSampler returns a sampler reading from src. A nil src uses a freshly
// seeded PCG source so separate samplers do not share a stream.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	s := &Sampler{}
	for i, p := range Profiles {
		s.power[i] = distuv.Uniform{Min: p.AvgPowerW.Min, Max: p.AvgPowerW.Max, Src: src}
		s.avail[i] = distuv.Uniform{Min: p.Availability.Min, Max: p.Availability.Max, Src: src}
	}
	return s
}

// NewSeededSampler is a reproducible sampler.
func NewSeededSampler(seed uint64) *Sampler {
	return NewSampler(rand.NewPCG(seed, seed))
}

// Sample draws average power first and availability second.
func (s *Sampler) Sample(c model.DeviceClass) (avgPowerW, availability float64) {
	avgPowerW = s.power[c].Rand()
	availability = s.avail[c].Rand()
	return avgPowerW, availability
}
