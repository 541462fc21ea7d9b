package prediction

import "context"

// MockEstimator returns a fixed prediction or error.
type MockEstimator struct {
	MW  float64
	Err error
}

// PredictMW implements Estimator.
func (m MockEstimator) PredictMW(context.Context, DCMetrics, float64) (float64, error) {
	return m.MW, m.Err
}
