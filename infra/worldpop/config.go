package worldpop

import (
	"fmt"
	"os"
	"time"
)

// DefaultBaseURL is the public WorldPop API.
const DefaultBaseURL = "https://api.worldpop.org"

// Config defines how the population service is reached.
type Config struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	Dataset        string `json:"dataset"`
	Year           int    `json:"year"`
	PollAttempts   int    `json:"poll_attempts"`
	PollIntervalMS int    `json:"poll_interval_ms"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies the public endpoint and a 12 × 1s polling budget.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("WORLDPOP_API_KEY")
	}
	if c.Dataset == "" {
		c.Dataset = "wpgppop"
	}
	if c.Year == 0 {
		c.Year = 2020
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 12
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = 1000
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Validate checks the year range.
func (c Config) Validate() error {
	if c.Year != 0 && (c.Year < 2000 || c.Year > 2100) {
		return fmt.Errorf("worldpop: year %d out of range", c.Year)
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
