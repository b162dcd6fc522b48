package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const subsystem = "snapshot"

// PrometheusMetrics holds the snapshot service collectors
type PrometheusMetrics struct {
	// Render slot pool
	poolSize      prometheus.Gauge
	poolAvailable prometheus.Gauge

	// Renders
	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	strategyTotal  *prometheus.CounterVec

	// Search
	searchRequests *prometheus.CounterVec

	// HTTP
	httpRequests *prometheus.CounterVec

	// Errors
	errorsTotal *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics registers collectors on the default registry
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry registers collectors on registerer.
// The HTTP handler gathers from registerer when it is also a Gatherer.
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.poolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pool_size",
		Help:      "Number of render slots",
	})

	pm.poolAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pool_available",
		Help:      "Number of idle render slots",
	})

	pm.rendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "renders_total",
		Help:      "Total number of snapshot renders by outcome",
	}, []string{"status"}) // success, navigation_error, render_error, hard_timeout, pool_unavailable

	pm.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "render_duration_seconds",
		Help:      "Time spent producing a PDF",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~128s
	})

	pm.strategyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "strategy_total",
		Help:      "Strategy attempts by stage, strategy and result",
	}, []string{"stage", "strategy", "result"})

	pm.searchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "search_requests_total",
		Help:      "Total search requests by outcome",
	}, []string{"status"})

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total errors by type",
	}, []string{"type"})

	registerer.MustRegister(
		pm.poolSize,
		pm.poolAvailable,
		pm.rendersTotal,
		pm.renderDuration,
		pm.strategyTotal,
		pm.searchRequests,
		pm.httpRequests,
		pm.errorsTotal,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Snapshot service Prometheus metrics initialized")
	return pm
}

func (pm *PrometheusMetrics) UpdatePoolSize(size float64) {
	pm.poolSize.Set(size)
}

func (pm *PrometheusMetrics) UpdatePoolAvailable(available float64) {
	pm.poolAvailable.Set(available)
}

// RecordRender records a render outcome
func (pm *PrometheusMetrics) RecordRender(status string) {
	pm.rendersTotal.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) RecordRenderDuration(seconds float64) {
	pm.renderDuration.Observe(seconds)
}

func (pm *PrometheusMetrics) RecordStrategy(stage, strategy, result string) {
	pm.strategyTotal.WithLabelValues(stage, strategy, result).Inc()
}

func (pm *PrometheusMetrics) RecordSearch(status string) {
	pm.searchRequests.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordError records an error by type
func (pm *PrometheusMetrics) RecordError(errorType string) {
	pm.errorsTotal.WithLabelValues(errorType).Inc()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
