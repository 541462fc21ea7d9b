package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/core/model"
)

var kwBuckets = prometheus.ExponentialBuckets(0.1, 4, 10)

// PromSink records allocations in Prometheus metrics.
type PromSink struct {
	allocations *prometheus.CounterVec
	budget      prometheus.Histogram
	allocated   prometheus.Histogram
	unmet       prometheus.Histogram
	duration    prometheus.Histogram
	classAlloc  *prometheus.GaugeVec
	classCap    *prometheus.GaugeVec
	lookups     *prometheus.CounterVec
	lookupFails prometheus.Counter
	fallbacks   *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.allocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offload_allocations_total",
		Help: "Total number of allocations",
	}, []string{"source", "strategy"})); err != nil {
		return nil, err
	}
	if s.budget, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offload_budget_kw",
		Help:    "Requested offload budget",
		Buckets: kwBuckets,
	})); err != nil {
		return nil, err
	}
	if s.allocated, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offload_allocated_kw",
		Help:    "Total power placed per allocation",
		Buckets: kwBuckets,
	})); err != nil {
		return nil, err
	}
	if s.unmet, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offload_unmet_kw",
		Help:    "Budget left unplaced per allocation",
		Buckets: kwBuckets,
	})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offload_allocation_duration_seconds",
		Help:    "Time spent scoring and allocating",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.classAlloc, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "offload_class_allocation_kw",
		Help: "Power allocated to each device class by the last allocation",
	}, []string{"device_class"})); err != nil {
		return nil, err
	}
	if s.classCap, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "offload_class_capacity_kw",
		Help: "Capacity of each device class in the last allocation",
	}, []string{"device_class"})); err != nil {
		return nil, err
	}
	if s.lookups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offload_population_lookups_total",
		Help: "Successful population lookups",
	}, []string{"cached"})); err != nil {
		return nil, err
	}
	if s.lookupFails, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offload_population_lookup_failures_total",
		Help: "Failed population lookups",
	})); err != nil {
		return nil, err
	}
	if s.fallbacks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offload_strategy_fallbacks_total",
		Help: "Allocator strategy changes",
	}, []string{"strategy", "action"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation implements MetricsSink.
func (s *PromSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	res := rec.Result
	s.allocations.WithLabelValues(rec.Source, rec.Strategy).Inc()
	s.budget.Observe(res.BudgetKW)
	s.allocated.Observe(res.AllocTotalKW)
	s.unmet.Observe(res.UnmetKW)
	s.duration.Observe(rec.Duration.Seconds())
	for _, c := range model.Classes {
		s.classAlloc.WithLabelValues(c.String()).Set(res.AllocKW[c])
		s.classCap.WithLabelValues(c.String()).Set(res.CapacitiesKW[c])
	}
	return nil
}

// RecordPopulationLookup implements PopulationRecorder.
func (s *PromSink) RecordPopulationLookup(ev coremetrics.PopulationLookup) error {
	if ev.Failed {
		s.lookupFails.Inc()
		return nil
	}
	s.lookups.WithLabelValues(strconv.FormatBool(ev.Cached)).Inc()
	return nil
}

// RecordStrategyFallback implements StrategyRecorder.
func (s *PromSink) RecordStrategyFallback(ev coremetrics.StrategyFallback) error {
	s.fallbacks.WithLabelValues(ev.Strategy, ev.Action).Inc()
	return nil
}
