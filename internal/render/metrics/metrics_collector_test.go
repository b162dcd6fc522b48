package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*MetricsCollector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetricsCollectorWithRegistry("test", reg, zap.NewNop()), reg
}

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetricsCollector_RenderOutcomes(t *testing.T) {
	mc, reg := newTestCollector(t)

	mc.RecordRender(RenderSuccess)
	mc.RecordRender(RenderSuccess)
	mc.RecordRender(RenderNavigationError)
	mc.RecordRenderDuration(2.5)

	m := findMetric(t, reg, "test_snapshot_renders_total", map[string]string{"status": "success"})
	require.NotNil(t, m)
	assert.Equal(t, 2.0, m.GetCounter().GetValue())

	m = findMetric(t, reg, "test_snapshot_renders_total", map[string]string{"status": "navigation_error"})
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.GetCounter().GetValue())

	m = findMetric(t, reg, "test_snapshot_render_duration_seconds", map[string]string{})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 2.5, m.GetHistogram().GetSampleSum())
}

func TestMetricsCollector_RecordStrategy(t *testing.T) {
	mc, reg := newTestCollector(t)

	mc.RecordStrategy("navigation", "load", false)
	mc.RecordStrategy("navigation", "domcontentloaded", true)

	failed := findMetric(t, reg, "test_snapshot_strategy_total",
		map[string]string{"stage": "navigation", "strategy": "load", "result": "failure"})
	require.NotNil(t, failed)
	assert.Equal(t, 1.0, failed.GetCounter().GetValue())

	ok := findMetric(t, reg, "test_snapshot_strategy_total",
		map[string]string{"stage": "navigation", "strategy": "domcontentloaded", "result": "success"})
	require.NotNil(t, ok)
	assert.Equal(t, 1.0, ok.GetCounter().GetValue())
}

func TestMetricsCollector_PoolGauges(t *testing.T) {
	mc, reg := newTestCollector(t)

	mc.UpdatePoolSize(4)
	mc.UpdatePoolAvailable(3)
	mc.UpdatePoolAvailable(1)

	m := findMetric(t, reg, "test_snapshot_pool_size", map[string]string{})
	require.NotNil(t, m)
	assert.Equal(t, 4.0, m.GetGauge().GetValue())

	m = findMetric(t, reg, "test_snapshot_pool_available", map[string]string{})
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.GetGauge().GetValue())
}

func TestMetricsCollector_HTTPAndErrors(t *testing.T) {
	mc, reg := newTestCollector(t)

	mc.RecordHTTPRequest("/snapshot", "200")
	mc.RecordSearch("error")
	mc.RecordError("navigation_failed")

	assert.NotNil(t, findMetric(t, reg, "test_snapshot_http_requests_total",
		map[string]string{"endpoint": "/snapshot", "status": "200"}))
	assert.NotNil(t, findMetric(t, reg, "test_snapshot_search_requests_total",
		map[string]string{"status": "error"}))
	assert.NotNil(t, findMetric(t, reg, "test_snapshot_errors_total",
		map[string]string{"type": "navigation_failed"}))
}

func TestMetricsCollector_ServeHTTP(t *testing.T) {
	mc, _ := newTestCollector(t)
	mc.RecordRender(RenderHardTimeout)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics")
	mc.ServeHTTP(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.True(t, strings.Contains(body, `test_snapshot_renders_total{status="hard_timeout"} 1`), body)
}
