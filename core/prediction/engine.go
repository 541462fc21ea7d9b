package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks metrics outside their documented ranges.
var ErrInvalidInput = errors.New("invalid prediction input")

// DCMetrics describes the data centre workload.
type DCMetrics struct {
	AvgCPUUtil          float64 `json:"avg_cpu_util"`
	AvgGPUUtil          float64 `json:"avg_gpu_util"`
	NumCreativeMachines float64 `json:"num_creative_machines"`
	AvgMachineLoad      float64 `json:"avg_machine_load"`
}

// DefaultDCMetrics is used for fields a caller leaves unset.
func DefaultDCMetrics() DCMetrics {
	return DCMetrics{AvgCPUUtil: 0.5, AvgGPUUtil: 0.5, NumCreativeMachines: 100, AvgMachineLoad: 0.5}
}

// Estimator predicts the power to offload in MW.
type Estimator interface {
	PredictMW(ctx context.Context, m DCMetrics, availability float64) (float64, error)
}

// PowerModel is a utilisation heuristic: mean CPU/GPU utilisation times the
// machine load equivalent, scaled and weighted by availability.
type PowerModel struct {
	// ScaleMW converts utilisation × machine equivalents into MW. Default 10.
	ScaleMW float64
	// MaxMW caps the prediction. Default 100.
	MaxMW float64
}

// Validate checks utilisation and availability ranges.
func (PowerModel) Validate(m DCMetrics, availability float64) error {
	if !unit(availability) {
		return fmt.Errorf("%w: availability %v must be between 0 and 1", ErrInvalidInput, availability)
	}
	if !unit(m.AvgCPUUtil) || !unit(m.AvgGPUUtil) {
		return fmt.Errorf("%w: utilization values must be between 0 and 1", ErrInvalidInput)
	}
	return nil
}

// PredictMW implements Estimator.
func (p PowerModel) PredictMW(_ context.Context, m DCMetrics, availability float64) (float64, error) {
	if err := p.Validate(m, availability); err != nil {
		return 0, err
	}
	scale, maxMW := p.ScaleMW, p.MaxMW
	if scale <= 0 {
		scale = 10
	}
	if maxMW <= 0 {
		maxMW = 100
	}
	utilization := (m.AvgCPUUtil + m.AvgGPUUtil) / 2
	machines := m.NumCreativeMachines * m.AvgMachineLoad / 100
	power := utilization * machines * scale * availability
	return math.Max(0, math.Min(power, maxMW)), nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
