package allocate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/offload/core/events"
	"github.com/kilianp07/offload/core/model"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/infra/worldpop"
)

const (
	keyBudgetKW = "P_offload_kw"
	keyBudgetW  = "P_offload_w"
)

// RowKeys lists every key the row endpoint requires, budget first then per
// class count, average power and availability in model order.
func RowKeys() []string {
	keys := []string{keyBudgetKW}
	for _, c := range model.Classes {
		keys = append(keys, c.String()+"_count", c.String()+"_avg_w", c.String()+"_avail")
	}
	return keys
}

func decodeBody(c *gin.Context) (map[string]any, error) {
	var body map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, badInput("invalid JSON body: %v", err)
	}
	if body == nil {
		return nil, badInput("request body must be a JSON object")
	}
	return body, nil
}

// number reads key from body. ok is false when the key is absent or null.
func number(body map[string]any, key string) (v float64, ok bool, err error) {
	raw, present := body[key]
	if !present || raw == nil {
		return 0, false, nil
	}
	switch x := raw.(type) {
	case json.Number:
		v, err = x.Float64()
	case float64:
		v = x
	case string:
		v, err = strconv.ParseFloat(x, 64)
	default:
		err = fmt.Errorf("not a number")
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, badInput("%s must be numeric", key)
	}
	return v, true, nil
}

func requireNumber(body map[string]any, key string) (float64, error) {
	v, ok, err := number(body, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, badInput("missing key: %s", key)
	}
	return v, nil
}

// DecodeRow reads a JSON row object from r and parses it like POST /allocate.
func DecodeRow(r io.Reader) (offload.RowInput, error) {
	var body map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return offload.RowInput{}, badInput("invalid JSON body: %v", err)
	}
	return ParseRow(body)
}

// ParseRow validates a row body into a RowInput.
func ParseRow(body map[string]any) (offload.RowInput, error) {
	var missing []string
	for _, k := range RowKeys() {
		if v, ok := body[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return offload.RowInput{}, badInput("missing keys: %v", missing)
	}
	budget, err := requireNumber(body, keyBudgetKW)
	if err != nil {
		return offload.RowInput{}, err
	}
	if err := offload.ValidateBudget(budget); err != nil {
		return offload.RowInput{}, err
	}
	in := offload.RowInput{BudgetKW: budget}
	for _, c := range model.Classes {
		name := c.String()
		count, err := requireNumber(body, name+"_count")
		if err != nil {
			return offload.RowInput{}, err
		}
		if count > model.MaxCount {
			return offload.RowInput{}, badInput("%s_count must be at most %d", name, model.MaxCount)
		}
		avgW, err := requireNumber(body, name+"_avg_w")
		if err != nil {
			return offload.RowInput{}, err
		}
		avail, err := requireNumber(body, name+"_avail")
		if err != nil {
			return offload.RowInput{}, err
		}
		in.Devices[c] = model.DeviceState{Count: int(math.RoundToEven(count)), AvgPowerW: avgW, Availability: avail}
	}
	return in, nil
}

func (h *Handler) allocateRow(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	in, err := ParseRow(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	res, err := h.svc.AllocateRow(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if c.Query("summary") == "true" {
		lines, total := res.Summary()
		c.JSON(http.StatusOK, rowResponse{RowResult: res, SummaryLines: lines, TotalLine: total})
		return
	}
	c.JSON(http.StatusOK, res)
}

type rowResponse struct {
	offload.RowResult
	SummaryLines []string `json:"summary_lines,omitempty"`
	TotalLine    string   `json:"total_line,omitempty"`
}

type populationResponse struct {
	offload.PopulationResult
	Population       float64  `json:"population"`
	PopulationCached *bool    `json:"population_cached,omitempty"`
	SummaryLines     []string `json:"summary_lines,omitempty"`
	TotalLine        string   `json:"total_line,omitempty"`
}

func (h *Handler) allocatePopulation(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	in := offload.PopulationInput{Unit: model.UnitKW}
	if v, ok, err := number(body, keyBudgetKW); err != nil {
		h.respondError(c, err)
		return
	} else if ok {
		in.Budget = v
	} else if v, ok, err := number(body, keyBudgetW); err != nil {
		h.respondError(c, err)
		return
	} else if ok {
		in.Budget, in.Unit = v, model.UnitW
	} else {
		h.respondError(c, badInput("missing key: %s or %s", keyBudgetKW, keyBudgetW))
		return
	}
	if err := offload.ValidateBudget(in.Budget); err != nil {
		h.respondError(c, err)
		return
	}
	if in.SignalCount, _, err = number(body, "traffic_light_count"); err != nil {
		h.respondError(c, err)
		return
	}
	if seed, ok, err := number(body, "seed"); err != nil {
		h.respondError(c, err)
		return
	} else if ok {
		if seed < 0 {
			h.respondError(c, badInput("seed must be >= 0"))
			return
		}
		s := uint64(seed)
		in.Seed = &s
	}

	resp := populationResponse{}
	pop, ok, err := number(body, "population")
	switch {
	case err != nil:
		h.respondError(c, err)
		return
	case ok:
		in.Population = pop
	default:
		geo, present := body["geojson"]
		if !present || geo == nil {
			h.respondError(c, badInput("missing key: population or geojson"))
			return
		}
		q, err := queryFromBody(body)
		if err != nil {
			h.respondError(c, err)
			return
		}
		res, err := h.resolvePopulation(c, q)
		if err != nil {
			h.respondError(c, err)
			return
		}
		in.Population = res.TotalPopulation
		cached := res.Cached
		resp.PopulationCached = &cached
	}
	resp.Population = in.Population

	out, err := h.svc.AllocateByPopulation(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp.PopulationResult = out
	if c.Query("summary") == "true" {
		resp.SummaryLines, resp.TotalLine = out.Summary()
	}
	c.JSON(http.StatusOK, resp)
}

func queryFromBody(body map[string]any) (worldpop.Query, error) {
	geo, err := json.Marshal(body["geojson"])
	if err != nil {
		return worldpop.Query{}, badInput("invalid geojson: %v", err)
	}
	q := worldpop.Query{GeoJSON: bytes.TrimSpace(geo)}
	if ds, ok := body["dataset"].(string); ok {
		q.Dataset = ds
	}
	if y, ok, err := number(body, "year"); err != nil {
		return q, err
	} else if ok {
		q.Year = int(y)
	}
	if ra, ok := body["runasync"].(bool); ok {
		q.RunAsync = ra
	}
	return q, nil
}

func (h *Handler) resolvePopulation(c *gin.Context, q worldpop.Query) (worldpop.Result, error) {
	if h.population == nil {
		return worldpop.Result{}, fmt.Errorf("%w: population lookup is not configured", worldpop.ErrUpstream)
	}
	res, err := h.population.Population(c.Request.Context(), q)
	if h.bus != nil {
		h.bus.Publish(events.PopulationEvent{
			Dataset:    q.Dataset,
			Year:       q.Year,
			Population: res.TotalPopulation,
			Cached:     res.Cached,
			Err:        err,
		})
	}
	return res, err
}
