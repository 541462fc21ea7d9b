package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/offload/core/model"
)

// Artifact is the serialised form of a pre-fit multi-output linear model.
type Artifact struct {
	ModelType          string             `json:"model_type"`
	FeatureNames       []string           `json:"feature_names"`
	Intercepts         []float64          `json:"intercepts"`
	Coefficients       [][]float64        `json:"coefficients"`
	FeatureImportances []float64          `json:"feature_importances,omitempty"`
	Params             map[string]any     `json:"params,omitempty"`
	Metrics            map[string]float64 `json:"metrics,omitempty"`
}

// Validate checks the artifact against the fixed feature layout.
func (a Artifact) Validate() error {
	want := FeatureNames()
	if len(a.FeatureNames) != len(want) {
		return fmt.Errorf("%w: artifact has %d feature names, want %d", ErrFeatureMismatch, len(a.FeatureNames), len(want))
	}
	for i, n := range want {
		if a.FeatureNames[i] != n {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrFeatureMismatch, i, a.FeatureNames[i], n)
		}
	}
	if len(a.Intercepts) != model.NumClasses || len(a.Coefficients) != model.NumClasses {
		return fmt.Errorf("%w: artifact must have %d outputs", ErrFeatureMismatch, model.NumClasses)
	}
	for i, row := range a.Coefficients {
		if len(row) != NumFeatures {
			return fmt.Errorf("%w: output %d has %d coefficients", ErrFeatureMismatch, i, len(row))
		}
	}
	if n := len(a.FeatureImportances); n != 0 && n != NumFeatures {
		return fmt.Errorf("%w: %d feature importances", ErrFeatureMismatch, n)
	}
	return nil
}

// ReadArtifact decodes an artifact file without validating it.
func ReadArtifact(path string) (Artifact, error) {
	var a Artifact
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read scoring artifact: %w", err)
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("decode scoring artifact %s: %w", path, err)
	}
	return a, nil
}

// LinearModel computes W·x + b for every class.
type LinearModel struct {
	artifact Artifact
	weights  *mat.Dense
	bias     *mat.VecDense
}

// NewLinearModel validates a and prepares the weight matrix.
func NewLinearModel(a Artifact) (*LinearModel, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	w := mat.NewDense(model.NumClasses, NumFeatures, nil)
	for i, row := range a.Coefficients {
		w.SetRow(i, row)
	}
	b := mat.NewVecDense(model.NumClasses, append([]float64(nil), a.Intercepts...))
	return &LinearModel{artifact: a, weights: w, bias: b}, nil
}

// LoadLinearModel reads and validates the artifact at path.
func LoadLinearModel(path string) (*LinearModel, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	m, err := NewLinearModel(a)
	if err != nil {
		return nil, fmt.Errorf("scoring artifact %s: %w", path, err)
	}
	return m, nil
}

// Artifact returns the artifact the model was built from.
func (m *LinearModel) Artifact() Artifact { return m.artifact }

// Score implements Scorer.
func (m *LinearModel) Score(_ context.Context, features []float64) ([]float64, error) {
	if err := checkFeatures(features); err != nil {
		return nil, err
	}
	x := mat.NewVecDense(NumFeatures, append([]float64(nil), features...))
	var y mat.VecDense
	y.MulVec(m.weights, x)
	y.AddVec(&y, m.bias)
	out := make([]float64, model.NumClasses)
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out, nil
}
