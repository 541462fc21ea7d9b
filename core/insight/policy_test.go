package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestPolicyGeneratorDefaults(t *testing.T) {
	in := DefaultInput()
	in.PowerMW = ptr(25)
	got, err := PolicyGenerator{}.Generate(context.Background(), in)
	require.NoError(t, err)

	// factors 1, 1, 0.5 -> efficiency 2.5/3
	assert.InDelta(t, 2.5/3, got.Efficiency, 1e-12)
	// load 0.1 -> base 0.3, power factor 0.5
	assert.InDelta(t, 0.15, got.DistributionToOffload, 1e-12)
	assert.Equal(t, []string{"Maintain current operational parameters"}, got.RecommendedActions)
	assert.Equal(t, Constraints{MaxOffloadPercentage: 0.8, MinLocalCapacity: 0.2}, got.Constraints)
	assert.InDelta(t, 0.1, got.Metrics["load_per_person"], 1e-12)
	assert.InDelta(t, 0.5, got.Metrics["power_factor"], 1e-12)
}

func TestPolicyGeneratorHarshConditions(t *testing.T) {
	in := Input{
		PowerMW:  ptr(80),
		Map:      MapData{DeviceCounts: 900, Population: 1000},
		External: ExternalFactors{Temperature: 45, Humidity: 95, Pollution: 0.9},
	}
	got, err := PolicyGenerator{}.Generate(context.Background(), in)
	require.NoError(t, err)

	// factors 0.375, 0.55, 0.1
	assert.InDelta(t, 1.025/3, got.Efficiency, 1e-12)
	assert.InDelta(t, 0.7, got.DistributionToOffload, 1e-12)
	assert.Equal(t, []string{
		"Reduce workload due to poor environmental conditions",
		"Increase offloading to distributed systems",
		"High power demand (80.0 MW) - prioritize load distribution",
		"Prioritize green energy sources",
		"Increase cooling capacity",
	}, got.RecommendedActions)
}

func TestPolicyGeneratorWithoutPrediction(t *testing.T) {
	in := DefaultInput()
	in.Map = MapData{DeviceCounts: 300, Population: 1000}
	in.External.Temperature = 5
	got, err := PolicyGenerator{}.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.DistributionToOffload)
	assert.Equal(t, 0.0, got.Metrics["power_factor"])
	assert.Contains(t, got.RecommendedActions, "Monitor heating efficiency")
}

func TestPolicyGeneratorZeroPopulation(t *testing.T) {
	in := DefaultInput()
	in.Map = MapData{DeviceCounts: 3, Population: 0}
	got, err := PolicyGenerator{}.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Metrics["load_per_person"])
}

func TestInputValidation(t *testing.T) {
	in := DefaultInput()
	in.External.Temperature = 70
	_, err := PolicyGenerator{}.Generate(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = DefaultInput()
	in.External.Humidity = -1
	assert.ErrorIs(t, in.Validate(), ErrInvalidInput)
}
