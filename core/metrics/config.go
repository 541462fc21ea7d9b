package metrics

import "github.com/kilianp07/offload/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddress, when set, exposes /metrics on that address.
	PrometheusAddress string `json:"prometheus_address"`
}
