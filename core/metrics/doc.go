// Package metrics defines the sinks that observe allocations. Sinks such as
// PromSink and InfluxSink live in infra/metrics and register themselves with
// the factory here; several configured sinks are combined into a MultiSink.
// Optional recorder interfaces let a sink opt into population lookups and
// strategy fallbacks.
package metrics
