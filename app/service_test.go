package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/offload/config"
	"github.com/kilianp07/offload/core/factory"
	"github.com/kilianp07/offload/infra/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Logging.Level = "error"
	cfg.Scoring = factory.ModuleConfig{Type: "capacity"}
	return cfg
}

func TestNewFailsWithoutDefaultScoringModel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Logging.Level = "error"
	require.Equal(t, "linear", cfg.Scoring.Type)
	_, err := New(cfg)
	require.ErrorContains(t, err, config.DefaultScoringModel)
}

func TestNewLoadsLinearModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring = factory.ModuleConfig{Type: "linear", Conf: map[string]any{"path": "../" + config.DefaultScoringModel}}
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()
}

func TestNewServesHealth(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	rec := httptest.NewRecorder()
	svc.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "waterfill", svc.Offload.Strategy())
}

func TestNewAllocatesRow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Allocation.Type = "lp"
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	body := `{"P_offload_kw": 0.1,
		"phone_count": 10, "phone_avg_w": 5, "phone_avail": 1,
		"laptop_count": 1, "laptop_avg_w": 50, "laptop_avail": 1,
		"desktop_count": 0, "desktop_avg_w": 0, "desktop_avail": 0,
		"traffic_light_count": 0, "traffic_light_avg_w": 0, "traffic_light_avail": 0,
		"appliance_count": 0, "appliance_avg_w": 0, "appliance_avail": 0}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/allocate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	svc.server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"alloc_total_kw":0.1`)
}

func TestNewFailsOnMissingScoringModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.Type = "linear"
	cfg.Scoring.Conf = map[string]any{"path": "does-not-exist.json"}
	_, err := New(cfg)
	require.Error(t, err)
}

type countingCloser struct{ closed int }

func (c *countingCloser) Close() error { c.closed++; return nil }

func TestNewReleasesResourcesOnFailure(t *testing.T) {
	cases := map[string]func(*config.Config){
		"missing model": func(c *config.Config) {
			c.Scoring = factory.ModuleConfig{Type: "linear", Conf: map[string]any{"path": "does-not-exist.json"}}
		},
		"unknown scorer":   func(c *config.Config) { c.Scoring.Type = "oracle" },
		"unknown strategy": func(c *config.Config) { c.Allocation.Type = "greedy" },
		"unknown sink":     func(c *config.Config) { c.Metrics.Sinks = []factory.ModuleConfig{{Type: "nosuch"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			closer := &countingCloser{}
			orig := configureLogging
			configureLogging = func(logger.Options) (io.Closer, error) { return closer, nil }
			t.Cleanup(func() { configureLogging = orig })

			cfg := testConfig(t)
			mutate(cfg)
			_, err := New(cfg)
			require.Error(t, err)
			require.Equal(t, 1, closer.closed, "log file left open")
		})
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Allocation.Type = "greedy"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
