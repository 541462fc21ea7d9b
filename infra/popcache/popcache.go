// Package popcache stores resolved population lookups.
package popcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is satisfied by every backend.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Put(ctx context.Context, key string, population float64) error
	Close() error
}

// Config selects a backend. TTLHours of zero keeps entries forever.
type Config struct {
	Backend  string `json:"backend"`
	Path     string `json:"path"`
	TTLHours int    `json:"ttl_hours"`
}

func (c Config) ttl() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// New builds the backend named by cfg. It returns nil for "none".
func New(cfg Config) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemory(cfg.ttl()), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("popcache: sqlite backend requires path")
		}
		return NewSQLite(cfg.Path, cfg.ttl())
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("popcache: unknown backend %q", cfg.Backend)
	}
}

type entry struct {
	value  float64
	stored time.Time
}

// Memory is an in-process cache.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	ttl time.Duration
	now func() time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{m: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) (float64, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	if c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return 0, false, nil
	}
	return e.value, true, nil
}

func (c *Memory) Put(_ context.Context, key string, population float64) error {
	c.mu.Lock()
	c.m[key] = entry{value: population, stored: c.now()}
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *Memory) Close() error { return nil }
