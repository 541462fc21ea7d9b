package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/offload/core/factory"
	"github.com/kilianp07/offload/core/model"
)

var (
	// ErrFeatureMismatch is returned when a feature vector or an artifact does
	// not follow the expected layout.
	ErrFeatureMismatch = errors.New("feature layout mismatch")
	// ErrArtifactNotLoaded is returned by a Lazy scorer with no loader.
	ErrArtifactNotLoaded = errors.New("scoring artifact not loaded")
)

// Scorer returns one score per class in model order. Scores may be negative;
// the allocator clamps them.
type Scorer interface {
	Score(ctx context.Context, features []float64) ([]float64, error)
}

// Func adapts a function to Scorer.
type Func func(ctx context.Context, features []float64) ([]float64, error)

// Score implements Scorer.
func (f Func) Score(ctx context.Context, features []float64) ([]float64, error) {
	return f(ctx, features)
}

func checkFeatures(features []float64) error {
	if len(features) != NumFeatures {
		return fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(features), NumFeatures)
	}
	return nil
}

// Static returns the same weights for every request.
type Static struct {
	Weights [model.NumClasses]float64
}

// Score implements Scorer.
func (s Static) Score(_ context.Context, features []float64) ([]float64, error) {
	if err := checkFeatures(features); err != nil {
		return nil, err
	}
	out := make([]float64, model.NumClasses)
	copy(out, s.Weights[:])
	return out, nil
}

// CapacityProportional scores each class by its capacity, so water-fill
// splits the budget in proportion to what each class can absorb.
type CapacityProportional struct{}

// Score implements Scorer.
func (CapacityProportional) Score(_ context.Context, features []float64) ([]float64, error) {
	if err := checkFeatures(features); err != nil {
		return nil, err
	}
	out := make([]float64, model.NumClasses)
	for i := range out {
		out[i] = features[1+3*i] * features[2+3*i] / 1000
	}
	return out, nil
}

var registry = factory.NewRegistry[Scorer]("capacity")

func init() {
	registry.MustRegister("linear", func(conf map[string]any) (Scorer, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("linear scorer: path is required")
		}
		path := c.Path
		return NewLazy(func() (Scorer, error) { return LoadLinearModel(path) }), nil
	})
	registry.MustRegister("static", func(conf map[string]any) (Scorer, error) {
		var c struct {
			Weights map[string]float64 `json:"weights"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var s Static
		for name, w := range c.Weights {
			cls, err := model.ParseDeviceClass(name)
			if err != nil {
				return nil, err
			}
			s.Weights[cls] = w
		}
		return s, nil
	})
	registry.MustRegister("capacity", func(map[string]any) (Scorer, error) {
		return CapacityProportional{}, nil
	})
}

// New builds the scorer described by cfg. An empty type selects the capacity
// proportional stub.
func New(cfg factory.ModuleConfig) (Scorer, error) {
	return registry.Create(cfg)
}
