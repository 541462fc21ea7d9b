// Package factory instantiates pluggable components (scorers, allocators,
// metrics sinks) from configuration. A component is described by a type string
// and a map of raw settings; each factory decodes the settings into its own
// typed struct.
//
//	reg := factory.NewRegistry[allocation.Allocator]()
//	_ = reg.Register("waterfill", func(conf map[string]any) (allocation.Allocator, error) {
//	    var c struct{ Epsilon float64 `json:"epsilon"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return allocation.WaterFill{Epsilon: c.Epsilon}, nil
//	})
//	a, err := reg.Create(factory.ModuleConfig{Type: "waterfill"})
package factory
