//go:build integration

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/offload/app"
	"github.com/kilianp07/offload/config"
	"github.com/kilianp07/offload/core/factory"
	"github.com/kilianp07/offload/test/util"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// TestFullStack runs the service against a real broker and InfluxDB and
// checks that one population allocation reaches every sink.
func TestFullStack(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxURL, stopInflux, err := util.StartInflux(ctx)
	if err != nil {
		t.Skipf("influx: %v", err)
	}
	defer stopInflux()
	broker, stopMQTT, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto: %v", err)
	}
	defer stopMQTT()

	cfg := config.Default()
	cfg.Scoring = factory.ModuleConfig{Type: "linear", Conf: map[string]any{"path": "../" + config.DefaultScoringModel}}
	cfg.Server.Address = freeAddr(t)
	cfg.Metrics.PrometheusAddress = freeAddr(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "prometheus"},
		{Type: "influx", Conf: map[string]any{
			"url": influxURL, "token": util.InfluxToken, "org": util.InfluxOrg, "bucket": util.InfluxBucket,
		}},
	}
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = broker
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		if err := svc.Run(runCtx); err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	base := "http://" + cfg.Server.Address
	waitCtx, waitCancel := context.WithTimeout(ctx, util.HTTPTimeout)
	defer waitCancel()
	require.NoError(t, util.WaitForHTTP(waitCtx, base+"/api/health"))

	body, _ := json.Marshal(map[string]any{
		"population":          20000,
		"traffic_light_count": 25,
		"P_offload_kw":        300,
		"seed":                7,
	})
	resp, err := http.Post(base+"/api/allocate/population", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		AllocTotalKW   float64 `json:"alloc_total_kw"`
		PercentOffload float64 `json:"percent_offload"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Greater(t, out.AllocTotalKW, 0.0)

	metricsCtx, metricsCancel := context.WithTimeout(ctx, util.HTTPTimeout)
	defer metricsCancel()
	require.NoError(t, util.WaitForMetric(metricsCtx,
		fmt.Sprintf("http://%s/metrics", cfg.Metrics.PrometheusAddress),
		`offload_allocations_total{source="population",strategy="waterfill"} 1`))

	cli := NewInfluxClient(influxURL, util.InfluxOrg, util.InfluxBucket, util.InfluxToken)
	defer cli.Close()
	require.Eventually(t, func() bool {
		n, err := cli.CountPoints(ctx, "allocation", "source", "population")
		return err == nil && n > 0
	}, 10*time.Second, 200*time.Millisecond)
}
