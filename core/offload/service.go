package offload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/offload/core/allocation"
	"github.com/kilianp07/offload/core/builder"
	"github.com/kilianp07/offload/core/events"
	"github.com/kilianp07/offload/core/logger"
	"github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/core/model"
	"github.com/kilianp07/offload/core/scoring"
	"github.com/kilianp07/offload/internal/eventbus"
)

const (
	SourceRow        = "row"
	SourcePopulation = "population"
)

// ErrNegativeBudget is reported by ValidateBudget.
var ErrNegativeBudget = errors.New("P_offload_kw must be >= 0")

// ValidateBudget rejects negative and non-finite budgets.
func ValidateBudget(budget float64) error {
	if math.IsNaN(budget) || math.IsInf(budget, 0) {
		return fmt.Errorf("budget must be a finite number")
	}
	if budget < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// RowInput is an explicit budget plus per class attributes.
type RowInput struct {
	BudgetKW float64
	Devices  model.Fleet
}

// RowResult is the rounded allocation keyed by class name.
type RowResult struct {
	Scores       map[string]float64 `json:"scores"`
	CapacitiesKW map[string]float64 `json:"capacities_kw"`
	AllocKW      map[string]float64 `json:"alloc_kw"`
	AllocTotalKW float64            `json:"alloc_total_kw"`
	UnmetKW      float64            `json:"unmet_kw"`
	// Result keeps the unrounded values in model order.
	Result model.AllocationResult `json:"-"`
}

// PopulationInput derives the fleet from a population figure.
type PopulationInput struct {
	Population  float64
	SignalCount float64
	Budget      float64
	Unit        model.BudgetUnit
	// Seed overrides the service seed for this request.
	Seed *uint64
}

// PopulationResult adds the budget coverage and the derived counts.
type PopulationResult struct {
	RowResult
	PercentOffload      float64                 `json:"percent_offload"`
	RawTotalKWOffloaded float64                 `json:"raw_total_kw_offloaded"`
	InputCounts         map[string]int          `json:"input_counts"`
	Request             model.AllocationRequest `json:"-"`
}

// Service runs allocations. It is safe for concurrent use when the scorer
// and allocator are. Metrics and publishing run on a background reporter so
// a slow sink or broker never holds a request; call Close to drain it.
type Service struct {
	scorer    scoring.Scorer
	allocator allocation.Allocator
	strict    allocation.Strict
	logger    logger.Logger
	metrics   metrics.MetricsSink
	bus       eventbus.EventBus
	publisher Publisher
	seed      *uint64
	now       func() time.Time

	queueSize      int
	publishTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
	reports        chan report
	wg             sync.WaitGroup
}

type report struct {
	ctx      context.Context
	source   string
	strategy string
	res      model.AllocationResult
	d        time.Duration
	at       time.Time
}

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 10 * time.Second
)

// NewService wires a scorer and an allocator. Allocators implementing
// allocation.Strict have their solver failures reported on the bus before the
// fallback runs; the allocator itself is left untouched.
func NewService(s scoring.Scorer, a allocation.Allocator, opts ...Option) *Service {
	if a == nil {
		a = allocation.WaterFill{}
	}
	svc := &Service{
		scorer:         s,
		allocator:      a,
		logger:         nopLogger{},
		metrics:        metrics.NopSink{},
		now:            time.Now,
		queueSize:      defaultQueueSize,
		publishTimeout: defaultPublishTimeout,
	}
	if st, ok := a.(allocation.Strict); ok {
		svc.strict = st
	}
	for _, o := range opts {
		o(svc)
	}
	if _, nop := svc.metrics.(metrics.NopSink); !nop || svc.publisher != nil {
		svc.reports = make(chan report, svc.queueSize)
		svc.wg.Add(1)
		go svc.runReporter()
	}
	return svc
}

// Close stops accepting side effects and waits for queued ones to finish.
// Allocation keeps working after Close; its results are no longer recorded
// or published.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.reports != nil {
		close(s.reports)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Strategy names the allocator in use.
func (s *Service) Strategy() string { return s.allocator.Name() }

// AllocateRow allocates an explicit request.
func (s *Service) AllocateRow(ctx context.Context, in RowInput) (RowResult, error) {
	req := builder.FromRow(in.BudgetKW, in.Devices)
	res, err := s.run(ctx, SourceRow, req)
	if err != nil {
		return RowResult{}, err
	}
	return newRowResult(res), nil
}

// AllocateByPopulation derives counts from the population, samples the per
// class power and availability, and allocates the converted budget.
func (s *Service) AllocateByPopulation(ctx context.Context, in PopulationInput) (PopulationResult, error) {
	budgetKW, err := in.Unit.ToKW(in.Budget)
	if err != nil {
		return PopulationResult{}, err
	}
	seed := in.Seed
	if seed == nil {
		seed = s.seed
	}
	var sampler *builder.Sampler
	if seed != nil {
		sampler = builder.NewSeededSampler(*seed)
	} else {
		sampler = builder.NewSampler(nil)
	}
	req := builder.FromPopulation(in.Population, in.SignalCount, budgetKW, sampler)

	res, err := s.run(ctx, SourcePopulation, req)
	if err != nil {
		return PopulationResult{}, err
	}
	row := newRowResult(res)
	out := PopulationResult{
		RowResult:           row,
		RawTotalKWOffloaded: row.AllocTotalKW,
		InputCounts:         req.Devices.Counts(),
		Request:             req,
		PercentOffload:      1.0,
	}
	if req.BudgetKW > 0 {
		out.PercentOffload = Round4(row.AllocTotalKW / req.BudgetKW)
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, source string, req model.AllocationRequest) (model.AllocationResult, error) {
	start := s.now()
	raw, err := s.scorer.Score(ctx, scoring.Features(req))
	if err != nil {
		return model.AllocationResult{}, fmt.Errorf("score: %w", err)
	}
	scores := allocation.ClampScores(raw)
	caps := req.Devices.Capacities()

	alloc, strategy, err := s.allocate(scores, caps, req.BudgetKW)
	if err != nil {
		return model.AllocationResult{}, fmt.Errorf("allocate: %w", err)
	}
	res := model.NewAllocationResult(req.BudgetKW, scores, caps, alloc)
	s.report(ctx, source, strategy, res, s.now().Sub(start))
	return res, nil
}

// allocate returns the allocation and the name of the strategy that
// produced it, which differs from Strategy when a solver fell back.
func (s *Service) allocate(scores, caps []float64, budgetKW float64) ([]float64, string, error) {
	if s.strict == nil {
		alloc, err := s.allocator.Allocate(scores, caps, budgetKW)
		return alloc, s.allocator.Name(), err
	}
	alloc, err := s.strict.AllocateStrict(scores, caps, budgetKW)
	if err == nil || errors.Is(err, allocation.ErrLengthMismatch) {
		return alloc, s.strict.Name(), err
	}
	fb := s.strict.FallbackAllocator()
	s.reportFallback(s.strict.Name(), fb.Name(), fmt.Errorf("%w: %w", allocation.ErrSolverFallback, err))
	alloc, err = fb.Allocate(scores, caps, budgetKW)
	return alloc, fb.Name(), err
}

// report logs the result and emits the bus event inline. Metrics and
// publishing are queued for the reporter and dropped when the queue is full.
func (s *Service) report(ctx context.Context, source, strategy string, res model.AllocationResult, d time.Duration) {
	s.logger.Debugw("allocation done", map[string]any{
		"source":    source,
		"strategy":  strategy,
		"budget_kw": res.BudgetKW,
		"alloc_kw":  res.AllocTotalKW,
		"unmet_kw":  res.UnmetKW,
	})
	if s.bus != nil {
		s.bus.Publish(events.AllocationEvent{
			Source:       source,
			Strategy:     strategy,
			BudgetKW:     res.BudgetKW,
			AllocTotalKW: res.AllocTotalKW,
			UnmetKW:      res.UnmetKW,
			Duration:     d,
		})
	}
	if s.reports == nil {
		return
	}
	r := report{
		ctx:      context.WithoutCancel(ctx),
		source:   source,
		strategy: strategy,
		res:      res,
		d:        d,
		at:       s.now(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.reports <- r:
	default:
		s.logger.Warnf("report queue full, dropping %s allocation", source)
	}
}

func (s *Service) runReporter() {
	defer s.wg.Done()
	for r := range s.reports {
		s.deliver(r)
	}
}

func (s *Service) deliver(r report) {
	if err := s.metrics.RecordAllocation(metrics.AllocationRecord{
		Source:   r.source,
		Strategy: r.strategy,
		Result:   r.res,
		Duration: r.d,
		Time:     r.at,
	}); err != nil {
		s.logger.Warnf("record allocation: %v", err)
	}
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, s.publishTimeout)
	defer cancel()
	if _, err := s.publisher.PublishAllocation(ctx, r.source, r.res); err != nil {
		s.logger.Warnf("publish allocation: %v", err)
	}
}

func (s *Service) reportFallback(strategy, fallback string, err error) {
	s.logger.Warnf("%s allocation failed, using %s: %v", strategy, fallback, err)
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.StrategyEvent{Strategy: strategy, Action: strategy + "_failure", Err: err})
	s.bus.Publish(events.StrategyEvent{Strategy: strategy, Action: fallback + "_fallback"})
}

func newRowResult(res model.AllocationResult) RowResult {
	return RowResult{
		Scores:       roundedByName(res.Scores),
		CapacitiesKW: roundedByName(res.CapacitiesKW),
		AllocKW:      roundedByName(res.AllocKW),
		AllocTotalKW: Round4(res.AllocTotalKW),
		UnmetKW:      Round4(res.UnmetKW),
		Result:       res,
	}
}

func roundedByName(v [model.NumClasses]float64) map[string]float64 {
	m := model.ByName(v)
	for k, x := range m {
		m[k] = Round4(x)
	}
	return m
}

// Round4 rounds to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
