// Package infra contains technical adapters: the MQTT publisher, metrics
// sinks, the WorldPop client and population caches. These packages depend
// only on the interfaces defined in the core packages.
package infra
