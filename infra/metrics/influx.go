package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/offload/core/metrics"
	"github.com/kilianp07/offload/core/model"
	"github.com/kilianp07/offload/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes allocations to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAllocation writes one allocation point and one class_allocation
// point per device class.
func (s *InfluxSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	res := rec.Result
	points := make([]*write.Point, 0, 1+model.NumClasses)
	points = append(points, write.NewPointWithMeasurement("allocation").
		AddTag("source", rec.Source).
		AddTag("strategy", rec.Strategy).
		AddField("budget_kw", round3(res.BudgetKW)).
		AddField("alloc_total_kw", round3(res.AllocTotalKW)).
		AddField("unmet_kw", round3(res.UnmetKW)).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(ts))
	for _, c := range model.Classes {
		points = append(points, write.NewPointWithMeasurement("class_allocation").
			AddTag("device_class", c.String()).
			AddTag("source", rec.Source).
			AddField("alloc_kw", round3(res.AllocKW[c])).
			AddField("capacity_kw", round3(res.CapacitiesKW[c])).
			AddField("score", round3(res.Scores[c])).
			SetTime(ts))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPopulationLookup persists a population query.
func (s *InfluxSink) RecordPopulationLookup(ev coremetrics.PopulationLookup) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("population_lookup").
		AddTag("dataset", ev.Dataset).
		AddTag("year", strconv.Itoa(ev.Year)).
		AddTag("cached", strconv.FormatBool(ev.Cached)).
		AddField("population", ev.Population).
		AddField("failed", ev.Failed).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStrategyFallback records an allocator fallback.
func (s *InfluxSink) RecordStrategyFallback(ev coremetrics.StrategyFallback) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("strategy_fallback").
		AddTag("strategy", ev.Strategy).
		AddTag("action", ev.Action).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
