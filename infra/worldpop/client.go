// Package worldpop queries the WorldPop statistics service for the total
// population inside a GeoJSON area.
package worldpop

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/offload/infra/logger"
)

var (
	// ErrMissingGeoJSON is returned when a query has no area.
	ErrMissingGeoJSON = errors.New("missing geojson")
	// ErrInvalidGeoJSON is returned when the area is not valid JSON.
	ErrInvalidGeoJSON = errors.New("invalid geojson")
	// ErrUpstream covers unreachable service, bad payloads and task errors.
	ErrUpstream = errors.New("worldpop upstream error")
	// ErrTimeout is returned when an async task does not finish in time.
	ErrTimeout = errors.New("timed out waiting for WorldPop task to finish")
)

// Query selects a dataset, year and area.
type Query struct {
	Dataset  string          `json:"dataset,omitempty"`
	Year     int             `json:"year,omitempty"`
	GeoJSON  json.RawMessage `json:"geojson"`
	RunAsync bool            `json:"runasync,omitempty"`
}

// Result is a resolved population.
type Result struct {
	TotalPopulation float64         `json:"total_population"`
	TaskID          string          `json:"taskid,omitempty"`
	Cached          bool            `json:"cached"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Cache stores resolved populations by query key.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Put(ctx context.Context, key string, population float64) error
}

type response struct {
	Status       string `json:"status"`
	Error        any    `json:"error"`
	ErrorMessage string `json:"error_message"`
	Message      string `json:"message"`
	TaskID       string `json:"taskid"`
	Data         struct {
		TotalPopulation *float64 `json:"total_population"`
	} `json:"data"`
}

func (r response) finished() bool {
	return r.Status == "finished" && r.Data.TotalPopulation != nil
}

func (r response) failed() bool {
	if r.Status == "error" {
		return true
	}
	switch e := r.Error.(type) {
	case nil:
		return false
	case bool:
		return e
	case string:
		return e != ""
	default:
		return true
	}
}

func (r response) message(fallback string) string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

// Client talks to the WorldPop API.
type Client struct {
	cfg   Config
	http  *http.Client
	cache Cache
	log   logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithCache enables result caching.
func WithCache(cache Cache) Option { return func(c *Client) { c.cache = cache } }

// WithLogger replaces the component logger.
func WithLogger(l logger.Logger) Option { return func(c *Client) { c.log = l } }

// NewClient returns a client for cfg with defaults applied.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.SetDefaults()
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:  logger.New("worldpop"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Normalize fills the query defaults and compacts the GeoJSON.
func (c *Client) Normalize(q Query) (Query, error) {
	if len(bytes.TrimSpace(q.GeoJSON)) == 0 || string(bytes.TrimSpace(q.GeoJSON)) == "null" {
		return q, ErrMissingGeoJSON
	}
	if q.Dataset == "" {
		q.Dataset = c.cfg.Dataset
	}
	if q.Year == 0 {
		q.Year = c.cfg.Year
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, q.GeoJSON); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	q.GeoJSON = buf.Bytes()
	return q, nil
}

// CacheKey identifies a normalised query.
func CacheKey(q Query) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|", strings.ToLower(q.Dataset), q.Year)
	h.Write(q.GeoJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// Population resolves the total population for q. Async tasks are polled
// until they finish, fail or the attempt budget runs out.
func (c *Client) Population(ctx context.Context, q Query) (Result, error) {
	q, err := c.Normalize(q)
	if err != nil {
		return Result{}, err
	}
	key := CacheKey(q)
	if c.cache != nil {
		if pop, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warnf("population cache read: %v", err)
		} else if ok {
			return Result{TotalPopulation: pop, Cached: true}, nil
		}
	}

	res, err := c.lookup(ctx, q)
	if err != nil {
		return Result{}, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, key, res.TotalPopulation); err != nil {
			c.log.Warnf("population cache write: %v", err)
		}
	}
	return res, nil
}

func (c *Client) lookup(ctx context.Context, q Query) (Result, error) {
	params := url.Values{}
	params.Set("dataset", q.Dataset)
	params.Set("year", strconv.Itoa(q.Year))
	params.Set("geojson", string(q.GeoJSON))
	params.Set("runasync", strconv.FormatBool(q.RunAsync))
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	statsURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/services/stats?" + params.Encode()

	stats, raw, err := c.get(ctx, statsURL)
	if err != nil {
		return Result{}, err
	}
	if stats.finished() {
		return Result{TotalPopulation: *stats.Data.TotalPopulation, Raw: raw}, nil
	}
	if stats.TaskID == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrUpstream, stats.message("WorldPop did not return taskid"))
	}

	taskURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/tasks/" + url.PathEscape(stats.TaskID)
	c.log.Debugf("polling task %s", stats.TaskID)
	for i := 0; i < c.cfg.PollAttempts; i++ {
		if err := sleep(ctx, c.cfg.pollInterval()); err != nil {
			return Result{}, err
		}
		task, raw, err := c.get(ctx, taskURL)
		if errors.Is(err, errDecode) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if task.finished() {
			return Result{TotalPopulation: *task.Data.TotalPopulation, TaskID: stats.TaskID, Raw: raw}, nil
		}
		if task.failed() {
			return Result{}, fmt.Errorf("%w: %s", ErrUpstream, task.message("WorldPop task error"))
		}
	}
	return Result{TaskID: stats.TaskID}, fmt.Errorf("%w (task %s)", ErrTimeout, stats.TaskID)
}

var errDecode = errors.New("non-JSON response")

// maxResponseBytes caps how much of a WorldPop response is read.
const maxResponseBytes = 4 << 20

func (c *Client) get(ctx context.Context, u string) (response, json.RawMessage, error) {
	var r response
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return r, nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return r, nil, fmt.Errorf("%w: failed to reach WorldPop: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return r, nil, fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}
	if len(body) > maxResponseBytes {
		return r, nil, fmt.Errorf("%w: response exceeds %d bytes", ErrUpstream, maxResponseBytes)
	}
	if err := json.Unmarshal(body, &r); err != nil {
		snippet := string(body)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return r, nil, fmt.Errorf("%w: %w: %s", ErrUpstream, errDecode, snippet)
	}
	return r, body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
