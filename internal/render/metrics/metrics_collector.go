package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Render outcomes for renders_total
const (
	RenderSuccess         = "success"
	RenderNavigationError = "navigation_error"
	RenderRenderError     = "render_error"
	RenderHardTimeout     = "hard_timeout"
	RenderPoolUnavailable = "pool_unavailable"
)

// MetricsCollector centralizes all metrics recording for the snapshot service
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

// NewMetricsCollectorWithRegistry is NewMetricsCollector on a caller-owned registry
func NewMetricsCollectorWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, registerer, logger),
		logger:     logger,
	}
}

// UpdatePoolSize updates the render slot count
func (mc *MetricsCollector) UpdatePoolSize(size int) {
	mc.prometheus.UpdatePoolSize(float64(size))
}

// UpdatePoolAvailable updates the idle render slot count
func (mc *MetricsCollector) UpdatePoolAvailable(available int) {
	mc.prometheus.UpdatePoolAvailable(float64(available))
}

// RecordRender records a render outcome, one of the Render* constants
func (mc *MetricsCollector) RecordRender(status string) {
	mc.prometheus.RecordRender(status)
}

// RecordRenderDuration records render duration in seconds
func (mc *MetricsCollector) RecordRenderDuration(seconds float64) {
	mc.prometheus.RecordRenderDuration(seconds)
}

// RecordStrategy counts one fallback strategy attempt
func (mc *MetricsCollector) RecordStrategy(stage, strategy string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	mc.prometheus.RecordStrategy(stage, strategy, result)
}

// RecordSearch records a search request outcome ("success" or "error")
func (mc *MetricsCollector) RecordSearch(status string) {
	mc.prometheus.RecordSearch(status)
}

// RecordHTTPRequest records an HTTP request
func (mc *MetricsCollector) RecordHTTPRequest(endpoint, status string) {
	mc.prometheus.RecordHTTPRequest(endpoint, status)
}

// RecordError records an error by its API error type
func (mc *MetricsCollector) RecordError(errorType string) {
	mc.prometheus.RecordError(errorType)
	mc.logger.Debug("Recorded error", zap.String("type", errorType))
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
