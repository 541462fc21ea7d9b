package insight

import (
	"context"
	"fmt"
	"math"
)

// PolicyGenerator derives efficiency and the share of load to distribute
// from environmental factors, device density and the predicted power.
type PolicyGenerator struct{}

// Generate implements Generator.
func (PolicyGenerator) Generate(_ context.Context, in Input) (Insight, error) {
	if err := in.Validate(); err != nil {
		return Insight{}, err
	}
	ext := in.External

	tempFactor := 1 - math.Abs(ext.Temperature-20)/40
	humFactor := 1 - math.Abs(ext.Humidity-50)/100
	pollFactor := 1 - ext.Pollution
	efficiency := clip((tempFactor+humFactor+pollFactor)/3, 0.3, 1)

	loadPerPerson := in.Map.DeviceCounts / math.Max(in.Map.Population, 1)

	var base float64
	switch {
	case loadPerPerson > 0.5:
		base = 0.7
	case loadPerPerson > 0.2:
		base = 0.5
	default:
		base = 0.3
	}
	var powerFactor float64
	distribution := base
	if in.PowerMW != nil {
		powerFactor = math.Min(*in.PowerMW/50, 1)
		distribution = base * powerFactor
	}
	distribution = clip(distribution, 0, 1)

	return Insight{
		Efficiency:            efficiency,
		DistributionToOffload: distribution,
		RecommendedActions:    actions(efficiency, distribution, ext, in.PowerMW),
		Constraints:           Constraints{MaxOffloadPercentage: 0.8, MinLocalCapacity: 0.2},
		Metrics: map[string]float64{
			"temperature_factor": tempFactor,
			"humidity_factor":    humFactor,
			"pollution_factor":   pollFactor,
			"load_per_person":    loadPerPerson,
			"power_factor":       powerFactor,
		},
	}, nil
}

func actions(efficiency, distribution float64, ext ExternalFactors, powerMW *float64) []string {
	var out []string
	if efficiency < 0.5 {
		out = append(out, "Reduce workload due to poor environmental conditions")
	}
	if distribution > 0.6 {
		out = append(out, "Increase offloading to distributed systems")
	}
	if powerMW != nil && *powerMW > 50 {
		out = append(out, fmt.Sprintf("High power demand (%.1f MW) - prioritize load distribution", *powerMW))
	}
	if ext.Pollution > 0.7 {
		out = append(out, "Prioritize green energy sources")
	}
	switch {
	case ext.Temperature > 30:
		out = append(out, "Increase cooling capacity")
	case ext.Temperature < 10:
		out = append(out, "Monitor heating efficiency")
	}
	if len(out) == 0 {
		out = append(out, "Maintain current operational parameters")
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
