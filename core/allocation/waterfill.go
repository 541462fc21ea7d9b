package allocation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// WaterFill is the proportional allocator with overflow redistribution.
type WaterFill struct {
	// Epsilon overrides DefaultEpsilon when positive.
	Epsilon float64
}

// Name implements Allocator.
func (WaterFill) Name() string { return "waterfill" }

func (w WaterFill) eps() float64 {
	if w.Epsilon > 0 {
		return w.Epsilon
	}
	return DefaultEpsilon
}

// Allocate implements Allocator.
//
// Each pass gives every active class its score share of the remaining budget,
// capped at its headroom. Classes whose headroom drops to epsilon leave the
// active set and the leftover is shared again. A class with zero score never
// receives power, even when budget remains.
func (w WaterFill) Allocate(scores, capacitiesKW []float64, budgetKW float64) ([]float64, error) {
	if len(scores) != len(capacitiesKW) {
		return nil, fmt.Errorf("%w: %d scores, %d capacities", ErrLengthMismatch, len(scores), len(capacitiesKW))
	}
	n := len(capacitiesKW)
	alloc := make([]float64, n)
	caps := make([]float64, n)
	for i, c := range capacitiesKW {
		if c > 0 {
			caps[i] = c
		}
	}
	if !(budgetKW > 0) || floats.Sum(caps) <= 0 {
		return alloc, nil
	}

	eps := w.eps()
	weights := ClampScores(scores)
	active := make([]bool, n)
	for i, c := range caps {
		active[i] = c > 0
	}
	masked := make([]float64, n)
	remaining := budgetKW

	for iter := 0; iter < n && remaining > eps; iter++ {
		for i := range masked {
			masked[i] = 0
			if active[i] {
				masked[i] = weights[i]
			}
		}
		// Normalise by the largest weight so the sum cannot overflow.
		top := floats.Max(masked)
		if top <= 0 {
			break
		}
		floats.Scale(1/top, masked)
		total := floats.Sum(masked)
		var placed float64
		for i, wi := range masked {
			if !active[i] {
				continue
			}
			headroom := caps[i] - alloc[i]
			delta := math.Min(wi/total*remaining, headroom)
			alloc[i] += delta
			placed += delta
			if headroom-delta <= eps {
				active[i] = false
			}
		}
		remaining -= placed
	}
	return alloc, nil
}
