package config

import (
	"github.com/kilianp07/offload/infra/popcache"
	"github.com/kilianp07/offload/infra/worldpop"
)

// PopulationConfig groups the WorldPop client and its cache.
type PopulationConfig struct {
	WorldPop worldpop.Config `json:"worldpop"`
	Cache    popcache.Config `json:"cache"`
}

func (c *PopulationConfig) SetDefaults() {
	c.WorldPop.SetDefaults()
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
}

func (c PopulationConfig) Validate() error {
	return c.WorldPop.Validate()
}
