// Package insight turns a power prediction, local device data and
// environmental conditions into operating recommendations.
package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/offload/core/model"
)

// ErrInvalidInput marks environmental values outside plausible ranges.
var ErrInvalidInput = errors.New("invalid insight input")

// MapData describes the receiving area.
type MapData struct {
	DeviceCounts float64 `json:"device_counts"`
	Population   float64 `json:"population"`
}

// ExternalFactors are the environmental conditions of the area.
type ExternalFactors struct {
	Weather     string  `json:"weather,omitempty"`
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Pollution   float64 `json:"pollution_emission_level"`
}

// Input is everything a generator needs. PowerMW is nil when no prediction
// was made.
type Input struct {
	PowerMW    *float64                `json:"power_to_offload,omitempty"`
	Map        MapData                 `json:"map_data"`
	External   ExternalFactors         `json:"external_factors"`
	Allocation *model.AllocationResult `json:"allocation,omitempty"`
}

// DefaultInput fills the documented defaults for unset map and factor values.
func DefaultInput() Input {
	return Input{
		Map:      MapData{DeviceCounts: 1000, Population: 10000},
		External: ExternalFactors{Temperature: 20, Humidity: 50, Pollution: 0.5},
	}
}

// Constraints bound how much load may leave the facility.
type Constraints struct {
	MaxOffloadPercentage float64 `json:"max_offload_percentage"`
	MinLocalCapacity     float64 `json:"min_local_capacity"`
}

// Insight is the generated recommendation.
type Insight struct {
	Efficiency            float64            `json:"efficiency"`
	DistributionToOffload float64            `json:"distribution_to_offload"`
	RecommendedActions    []string           `json:"recommended_actions"`
	Constraints           Constraints        `json:"constraints"`
	Metrics               map[string]float64 `json:"metrics"`
	// Text is set by generators that return a narrative.
	Text string `json:"text,omitempty"`
}

// Generator produces an Insight.
type Generator interface {
	Generate(ctx context.Context, in Input) (Insight, error)
}

// Validate checks temperature and humidity ranges.
func (in Input) Validate() error {
	if t := in.External.Temperature; t < -50 || t > 60 {
		return fmt.Errorf("%w: temperature out of reasonable range: %v", ErrInvalidInput, t)
	}
	if h := in.External.Humidity; h < 0 || h > 100 {
		return fmt.Errorf("%w: humidity must be between 0 and 100: %v", ErrInvalidInput, h)
	}
	return nil
}
