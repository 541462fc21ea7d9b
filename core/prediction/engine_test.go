package prediction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerModelDefaults(t *testing.T) {
	// utilization 0.5, machines 100*0.5/100 = 0.5, 0.5*0.5*10 = 2.5 MW
	mw, err := PowerModel{}.PredictMW(context.Background(), DefaultDCMetrics(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mw, 1e-12)

	mw, err = PowerModel{}.PredictMW(context.Background(), DefaultDCMetrics(), 0.4)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mw, 1e-12)
}

func TestPowerModelCaps(t *testing.T) {
	m := DCMetrics{AvgCPUUtil: 1, AvgGPUUtil: 1, NumCreativeMachines: 5000, AvgMachineLoad: 1}
	mw, err := PowerModel{}.PredictMW(context.Background(), m, 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, mw)

	m.NumCreativeMachines = -10
	mw, err = PowerModel{}.PredictMW(context.Background(), m, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mw)
}

func TestPowerModelValidation(t *testing.T) {
	cases := []struct {
		name  string
		m     DCMetrics
		avail float64
	}{
		{"availability above one", DefaultDCMetrics(), 1.2},
		{"negative availability", DefaultDCMetrics(), -0.1},
		{"cpu above one", DCMetrics{AvgCPUUtil: 2, AvgGPUUtil: 0.5}, 0.5},
		{"gpu negative", DCMetrics{AvgCPUUtil: 0.2, AvgGPUUtil: -1}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PowerModel{}.PredictMW(context.Background(), tc.m, tc.avail)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestMockEstimator(t *testing.T) {
	mw, err := MockEstimator{MW: 7}.PredictMW(context.Background(), DCMetrics{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, mw)

	boom := errors.New("boom")
	_, err = MockEstimator{Err: boom}.PredictMW(context.Background(), DCMetrics{}, 0)
	assert.ErrorIs(t, err, boom)
}
