package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/offload/core/factory"
	"github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/infra/insight"
	"github.com/kilianp07/offload/infra/mqtt"
)

// EnvPrefix prefixes environment overrides, e.g. OFFLOAD_SERVER__ADDRESS.
const EnvPrefix = "OFFLOAD_"

type Config struct {
	Server     ServerConfig         `json:"server"`
	Allocation factory.ModuleConfig `json:"allocation"`
	Scoring    factory.ModuleConfig `json:"scoring"`
	Sampling   SamplingConfig       `json:"sampling"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Logging    LoggingConfig        `json:"logging"`
	Sentry     SentryConfig         `json:"sentry"`
	Population PopulationConfig     `json:"population"`
	Insight    insight.Config       `json:"insight"`
}

// SamplingConfig pins the population sampler. A nil Seed draws a fresh
// source per request.
type SamplingConfig struct {
	Seed *uint64 `json:"seed"`
}

// Load reads path (YAML or JSON) and applies OFFLOAD_ environment overrides.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultScoringModel is the linear artifact loaded when scoring is not
// configured. The capacity and static scorers must be selected explicitly.
const DefaultScoringModel = "models/offload_linear.json"

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	if c.Allocation.Type == "" {
		c.Allocation.Type = "waterfill"
	}
	if c.Scoring.Type == "" {
		c.Scoring.Type = "linear"
	}
	if c.Scoring.Type == "linear" {
		if _, ok := c.Scoring.Conf["path"]; !ok {
			if c.Scoring.Conf == nil {
				c.Scoring.Conf = map[string]any{}
			}
			c.Scoring.Conf["path"] = DefaultScoringModel
		}
	}
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.Population.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	return errors.Join(
		c.Server.Validate(),
		c.MQTT.Validate(),
		c.Logging.Validate(),
		c.Population.Validate(),
	)
}
