package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "woyofal_scheduler_job_runs_total",
		Help: "Job runs.",
	}, []string{"job"})
	runs.WithLabelValues("period_close").Add(2)

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "woyofal_scheduler_last_success_timestamp",
		Help: "Last success.",
	})
	lastSuccess.Set(1741599000)

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "woyofal_scheduler_job_duration_seconds",
		Help: "Job duration.",
	})
	duration.Observe(0.2)

	registry.MustRegister(runs, lastSuccess, duration)
	return registry
}

func TestNewPusher(t *testing.T) {
	log := zap.NewNop()

	tests := []struct {
		name string
		cfg  config.MetricsPushConfig
		want any
	}{
		{name: "disabled", cfg: config.MetricsPushConfig{}},
		{name: "missing endpoint", cfg: config.MetricsPushConfig{Exporter: ExporterPushgateway}},
		{name: "unknown exporter", cfg: config.MetricsPushConfig{Exporter: "statsd", Endpoint: "localhost:8125"}},
		{name: "bad remote write url", cfg: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "not a url"}},
		{name: "remote write", cfg: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://prom:9090/api/v1/write"}, want: &RemoteWritePusher{}},
		{name: "pushgateway", cfg: config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://gateway:9091", Job: "woyofal_scheduler"}, want: &PushgatewayPusher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := NewPusher(config.Config{MetricsPush: tt.cfg}, log)
			if tt.want == nil {
				assert.Nil(t, pusher)
				return
			}
			assert.IsType(t, tt.want, pusher)
		})
	}
}

func TestBuildRemoteWriteSeriesSkipsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 2)

	names := make([]string, 0, len(series))
	for _, s := range series {
		assert.Equal(t, "__name__", s.Labels[0].Name)
		names = append(names, s.Labels[0].Value)
		require.Len(t, s.Samples, 1)
		assert.Equal(t, int64(1000), s.Samples[0].Timestamp)
	}
	assert.ElementsMatch(t, []string{
		"woyofal_scheduler_job_runs_total",
		"woyofal_scheduler_last_success_timestamp",
	}, names)
}

func TestRemoteWritePush(t *testing.T) {
	var (
		got     prompb.WriteRequest
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(1741599000000) }

	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	require.Len(t, got.Timeseries, 2)
	assert.Equal(t, int64(1741599000000), got.Timeseries[0].Samples[0].Timestamp)
}

func TestRemoteWritePushReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushgatewayRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://gateway:9091", " ", nil).Push(context.Background(), testRegistry(t))
	assert.EqualError(t, err, "pushgateway job is required")
}
