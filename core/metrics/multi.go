package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the record to all sinks.
func (m *MultiSink) RecordAllocation(rec AllocationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPopulationLookup forwards to sinks implementing PopulationRecorder.
func (m *MultiSink) RecordPopulationLookup(ev PopulationLookup) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PopulationRecorder); ok {
			if err := r.RecordPopulationLookup(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordStrategyFallback forwards to sinks implementing StrategyRecorder.
func (m *MultiSink) RecordStrategyFallback(ev StrategyFallback) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StrategyRecorder); ok {
			if err := r.RecordStrategyFallback(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close()
}

// Close closes every sink implementing Closer.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
