// Package events defines the events the allocation service emits on the bus.
//
// Available event types:
//   - AllocationEvent: one completed allocation
//   - StrategyEvent: allocator fallback information
//   - PopulationEvent: a population lookup result
package events
