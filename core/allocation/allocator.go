package allocation

import (
	"errors"
	"math"

	"github.com/kilianp07/offload/core/factory"
)

// DefaultEpsilon is the tolerance below which remaining budget, weight sums
// and headroom are treated as zero.
const DefaultEpsilon = 1e-9

// ErrLengthMismatch is returned when scores and capacities differ in length.
var ErrLengthMismatch = errors.New("scores and capacities length mismatch")

// Allocator distributes budgetKW over classes described by scores and
// capacities in the same order. Implementations never return an allocation
// above capacity or a total above the budget.
type Allocator interface {
	Allocate(scores, capacitiesKW []float64, budgetKW float64) ([]float64, error)
	Name() string
}

// Strict is implemented by allocators that can surface a solver failure
// instead of absorbing it, leaving the caller to run FallbackAllocator.
type Strict interface {
	Allocator
	AllocateStrict(scores, capacitiesKW []float64, budgetKW float64) ([]float64, error)
	FallbackAllocator() Allocator
}

var registry = factory.NewRegistry[Allocator]("waterfill")

func init() {
	registry.MustRegister("waterfill", func(conf map[string]any) (Allocator, error) {
		var c struct {
			Epsilon float64 `json:"epsilon"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return WaterFill{Epsilon: c.Epsilon}, nil
	})
	registry.MustRegister("lp", func(conf map[string]any) (Allocator, error) {
		var c struct {
			Tolerance float64 `json:"tolerance"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLP(c.Tolerance), nil
	})
}

// New builds the allocator described by cfg. An empty type selects water-fill.
func New(cfg factory.ModuleConfig) (Allocator, error) {
	return registry.Create(cfg)
}

// Types lists the registered strategies.
func Types() []string { return registry.Types() }

// ClampScores replaces negative and non-finite scores with zero.
func ClampScores(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		if s > 0 && !math.IsInf(s, 1) {
			out[i] = s
		}
	}
	return out
}
