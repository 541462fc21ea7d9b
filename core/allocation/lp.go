package allocation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrSolverFallback wraps the solver error when LP fell back to water-fill.
var ErrSolverFallback = errors.New("lp solver failed, used fallback")

// lpSolve points to the solver. Tests override it to simulate failures.
var lpSolve = solveLP

// LP maximises Σ score·alloc subject to per class capacity and a total equal
// to min(budget, capacity of the scored classes). Only classes with a
// positive score and capacity take part.
type LP struct {
	Tolerance float64
	// Fallback is used when the solver fails. Nil means water-fill.
	Fallback Allocator
	// OnFallback, when set, is called with the solver error before falling back.
	OnFallback func(error)
}

// NewLP returns an LP allocator falling back to water-fill.
func NewLP(tolerance float64) *LP {
	if tolerance <= 0 {
		tolerance = 1e-7
	}
	return &LP{Tolerance: tolerance, Fallback: WaterFill{}}
}

// Name implements Allocator.
func (*LP) Name() string { return "lp" }

// Allocate implements Allocator. Solver errors are absorbed by the fallback.
func (l *LP) Allocate(scores, capacitiesKW []float64, budgetKW float64) ([]float64, error) {
	alloc, err := l.AllocateStrict(scores, capacitiesKW, budgetKW)
	if err == nil || errors.Is(err, ErrLengthMismatch) {
		return alloc, err
	}
	if l.OnFallback != nil {
		l.OnFallback(fmt.Errorf("%w: %w", ErrSolverFallback, err))
	}
	return l.FallbackAllocator().Allocate(scores, capacitiesKW, budgetKW)
}

// FallbackAllocator returns the allocator used when the solver fails.
func (l *LP) FallbackAllocator() Allocator {
	if l.Fallback == nil {
		return WaterFill{}
	}
	return l.Fallback
}

// AllocateStrict solves the LP and returns the solver error without fallback.
func (l *LP) AllocateStrict(scores, capacitiesKW []float64, budgetKW float64) ([]float64, error) {
	if len(scores) != len(capacitiesKW) {
		return nil, fmt.Errorf("%w: %d scores, %d capacities", ErrLengthMismatch, len(scores), len(capacitiesKW))
	}
	alloc := make([]float64, len(scores))
	weights := ClampScores(scores)

	var idx []int
	var candScores, candCaps []float64
	for i, c := range capacitiesKW {
		if c > 0 && weights[i] > 0 {
			idx = append(idx, i)
			candScores = append(candScores, weights[i])
			candCaps = append(candCaps, c)
		}
	}
	if len(idx) == 0 || !(budgetKW > 0) {
		return alloc, nil
	}
	target := math.Min(budgetKW, floats.Sum(candCaps))

	sol, err := lpSolve(candScores, candCaps, target, l.Tolerance)
	if err != nil {
		return nil, err
	}
	for k, i := range idx {
		alloc[i] = math.Max(0, math.Min(sol[k], candCaps[k]))
	}
	// Rescale away solver noise so the total never exceeds the target.
	if total := floats.Sum(alloc); total > target {
		floats.Scale(target/total, alloc)
	}
	return alloc, nil
}

// solveLP maximises scores·x with 0 <= x <= caps and Σx = target.
func solveLP(scores, caps []float64, target, tol float64) ([]float64, error) {
	n := len(scores)
	c := make([]float64, n)
	for i, s := range scores {
		c[i] = -s
	}

	g := mat.NewDense(2*n, n, nil)
	h := make([]float64, 2*n)
	for i, cp := range caps {
		g.Set(i, i, 1)
		h[i] = cp
		g.Set(n+i, i, -1)
	}

	a := mat.NewDense(1, n, nil)
	for i := range caps {
		a.Set(0, i, 1)
	}
	b := []float64{target}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return nil, err
	}
	// Convert splits x into xp - xn.
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}
