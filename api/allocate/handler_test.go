package allocate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/offload/core/allocation"
	"github.com/kilianp07/offload/core/events"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/core/prediction"
	"github.com/kilianp07/offload/core/scoring"
	"github.com/kilianp07/offload/infra/worldpop"
	"github.com/kilianp07/offload/internal/eventbus"
)

func init() { gin.SetMode(gin.TestMode) }

type fakePopulation struct {
	res worldpop.Result
	err error
	got worldpop.Query
}

func (f *fakePopulation) Population(_ context.Context, q worldpop.Query) (worldpop.Result, error) {
	f.got = q
	return f.res, f.err
}

type panicEstimator struct{}

func (panicEstimator) PredictMW(context.Context, prediction.DCMetrics, float64) (float64, error) {
	panic("boom")
}

func newRouter(opts ...Option) *gin.Engine {
	svc := offload.NewService(scoring.Static{Weights: [5]float64{1, 1, 1, 0, 0}}, allocation.WaterFill{})
	return NewRouter(NewHandler(svc, opts...), nil)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func rowBody() map[string]any {
	return map[string]any{
		"P_offload_kw":        10,
		"phone_count":         1000,
		"phone_avg_w":         2,
		"phone_avail":         0.25,
		"laptop_count":        100,
		"laptop_avg_w":        50,
		"laptop_avail":        0.3,
		"desktop_count":       10,
		"desktop_avg_w":       100,
		"desktop_avail":       0.5,
		"traffic_light_count": 0,
		"traffic_light_avg_w": 10,
		"traffic_light_avail": 0.9,
		"appliance_count":     0,
		"appliance_avg_w":     7,
		"appliance_avail":     0.6,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	w := do(t, newRouter(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAllocateRow(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/api/allocate", rowBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.InDelta(t, 8, out["alloc_total_kw"], 1e-4)
	assert.InDelta(t, 2, out["unmet_kw"], 1e-4)
	alloc := out["alloc_kw"].(map[string]any)
	assert.InDelta(t, 5, alloc["laptop"], 1e-4)
	assert.NotContains(t, out, "summary_lines")
}

func TestAllocateRowSummary(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/api/allocate?summary=true", rowBody())
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Total: 8.0 kW (unmet: 2.0 kW)", out["total_line"])
	assert.Len(t, out["summary_lines"], 5)
}

func TestAllocateRowValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"missing key", func(b map[string]any) { delete(b, "laptop_avg_w") }, "laptop_avg_w"},
		{"non numeric", func(b map[string]any) { b["phone_avail"] = "high" }, "phone_avail"},
		{"bool", func(b map[string]any) { b["desktop_count"] = true }, "desktop_count"},
		{"negative budget", func(b map[string]any) { b["P_offload_kw"] = -1 }, "P_offload_kw"},
		{"count overflow", func(b map[string]any) { b["phone_count"] = 1e20 }, "phone_count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := rowBody()
			tc.mutate(body)
			w := do(t, newRouter(), http.MethodPost, "/api/allocate", body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode(t, w)["error"], tc.want)
		})
	}
}

func TestAllocateRowAcceptsNumericStrings(t *testing.T) {
	body := rowBody()
	body["P_offload_kw"] = "4"
	w := do(t, newRouter(), http.MethodPost, "/api/allocate", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 4, decode(t, w)["alloc_total_kw"], 1e-4)
}

func TestAllocateRowBadJSON(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/api/allocate", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocatePopulation(t *testing.T) {
	body := map[string]any{"population": 1000, "traffic_light_count": 5, "P_offload_w": 500, "seed": 7}
	w := do(t, newRouter(), http.MethodPost, "/api/allocate/population?summary=true", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	counts := out["input_counts"].(map[string]any)
	assert.Equal(t, 10.0, counts["phone"])
	assert.Equal(t, 2.0, counts["appliance"])
	assert.Equal(t, 7.0, counts["laptop"])
	assert.Equal(t, 4.0, counts["desktop"])
	assert.Equal(t, 5.0, counts["traffic_light"])
	assert.Equal(t, 1000.0, out["population"])
	assert.Contains(t, out, "percent_offload")
	assert.Contains(t, out, "total_line")

	again := decode(t, do(t, newRouter(), http.MethodPost, "/api/allocate/population", body))
	assert.Equal(t, out["alloc_kw"], again["alloc_kw"])
}

func TestAllocatePopulationZeroBudget(t *testing.T) {
	body := map[string]any{"population": 1000, "P_offload_kw": 0}
	w := do(t, newRouter(), http.MethodPost, "/api/allocate/population", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["percent_offload"])
}

func TestAllocatePopulationValidation(t *testing.T) {
	r := newRouter()
	w := do(t, r, http.MethodPost, "/api/allocate/population", map[string]any{"population": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/api/allocate/population", map[string]any{"P_offload_kw": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/api/allocate/population", map[string]any{"population": 10, "P_offload_kw": -2})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocatePopulationFromGeoJSON(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	pop := &fakePopulation{res: worldpop.Result{TotalPopulation: 4000, Cached: true}}
	body := map[string]any{
		"geojson":      map[string]any{"type": "Polygon", "coordinates": []any{}},
		"year":         2019,
		"P_offload_kw": 3,
	}
	w := do(t, newRouter(WithPopulation(pop), WithBus(bus)), http.MethodPost, "/api/allocate/population", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, 4000.0, out["population"])
	assert.Equal(t, true, out["population_cached"])
	assert.Equal(t, 2019, pop.got.Year)

	ev := (<-sub).(events.PopulationEvent)
	assert.Equal(t, 4000.0, ev.Population)
	assert.True(t, ev.Cached)
}

func TestPopulationErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w (task x)", worldpop.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: bad polygon", worldpop.ErrUpstream), http.StatusBadGateway},
		{worldpop.ErrMissingGeoJSON, http.StatusBadRequest},
	}
	for _, tc := range cases {
		pop := &fakePopulation{err: tc.err}
		w := do(t, newRouter(WithPopulation(pop)), http.MethodPost, "/api/population", map[string]any{"geojson": map[string]any{"type": "Point"}})
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestPopulationLookup(t *testing.T) {
	pop := &fakePopulation{res: worldpop.Result{TotalPopulation: 12, TaskID: "t"}}
	r := newRouter(WithPopulation(pop))
	w := do(t, r, http.MethodPost, "/api/population", map[string]any{"geojson": map[string]any{"type": "Point"}, "runasync": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_population":12,"taskid":"t","cached":false}`, w.Body.String())
	assert.True(t, pop.got.RunAsync)

	w = do(t, r, http.MethodPost, "/api/population", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing geojson")
}

func TestPopulationNotConfigured(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/api/population", map[string]any{"geojson": map[string]any{"type": "Point"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPredictOffloadDefaults(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/api/predict-offload", map[string]any{"availability": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 2.5, decode(t, w)["power_to_offload_mw"], 1e-9)

	w = do(t, newRouter(), http.MethodPost, "/api/predict-offload", map[string]any{"availability": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newRouter(), http.MethodPost, "/api/predict-offload", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPolicy(t *testing.T) {
	body := map[string]any{
		"availability":     1,
		"dc_metrics":       map[string]any{"avg_cpu_util": 1, "avg_gpu_util": 1},
		"map_data":         map[string]any{"device_counts": 600, "population": 1000},
		"external_factors": map[string]any{"temp": 20, "humidity": 50, "pollution_emission_level": 0},
	}
	w := do(t, newRouter(), http.MethodPost, "/api/policy", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.InDelta(t, 5, out["power_to_offload_mw"], 1e-9)
	policy := out["policy"].(map[string]any)
	assert.InDelta(t, 1.0, policy["efficiency"], 1e-9)
	assert.InDelta(t, 0.07, policy["distribution_to_offload"], 1e-9)
}

func TestInsightsValidation(t *testing.T) {
	body := map[string]any{"external_factors": map[string]any{"temp": 90, "humidity": 50}}
	w := do(t, newRouter(), http.MethodPost, "/api/insights", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanicRecovered(t *testing.T) {
	w := do(t, newRouter(WithEstimator(panicEstimator{})), http.MethodPost, "/api/predict-offload", map[string]any{"availability": 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "internal error"))
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/allocate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
