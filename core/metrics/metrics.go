package metrics

import (
	"time"

	"github.com/kilianp07/offload/core/model"
)

// AllocationRecord is one completed allocation.
type AllocationRecord struct {
	Source   string
	Strategy string
	Result   model.AllocationResult
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records allocations for observability purposes.
type MetricsSink interface {
	RecordAllocation(rec AllocationRecord) error
}

// PopulationLookup describes a population query against the external service.
type PopulationLookup struct {
	Dataset    string
	Year       int
	Population float64
	Cached     bool
	Failed     bool
	Time       time.Time
}

// PopulationRecorder records population lookups.
type PopulationRecorder interface {
	RecordPopulationLookup(ev PopulationLookup) error
}

// StrategyFallback records an allocator falling back to another strategy.
type StrategyFallback struct {
	Strategy string
	Action   string
	Reason   string
	Time     time.Time
}

// StrategyRecorder records allocator fallbacks.
type StrategyRecorder interface {
	RecordStrategyFallback(ev StrategyFallback) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationRecord) error       { return nil }
func (NopSink) RecordPopulationLookup(PopulationLookup) error { return nil }
func (NopSink) RecordStrategyFallback(StrategyFallback) error { return nil }
