package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/offload/core/events"
	coremetrics "github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				collect(sink, ev)
			}
		}
	}()
}

func collect(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.StrategyEvent:
		if r, ok := sink.(coremetrics.StrategyRecorder); ok {
			reason := ""
			if e.Err != nil {
				reason = e.Err.Error()
			}
			_ = r.RecordStrategyFallback(coremetrics.StrategyFallback{
				Strategy: e.Strategy,
				Action:   e.Action,
				Reason:   reason,
				Time:     time.Now(),
			})
		}
	case events.PopulationEvent:
		if r, ok := sink.(coremetrics.PopulationRecorder); ok {
			_ = r.RecordPopulationLookup(coremetrics.PopulationLookup{
				Dataset:    e.Dataset,
				Year:       e.Year,
				Population: e.Population,
				Cached:     e.Cached,
				Failed:     e.Err != nil,
				Time:       time.Now(),
			})
		}
	}
}
