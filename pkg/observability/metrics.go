package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service. It implements
// every hook interface in this package.
type Metrics struct {
	registry *prometheus.Registry

	// Outbound HTTP
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamErrorsTotal     *prometheus.CounterVec

	// Pipeline
	StageDuration      *prometheus.HistogramVec
	StageItems         *prometheus.GaugeVec
	StageErrorsTotal   *prometheus.CounterVec
	EnrichSkippedTotal *prometheus.CounterVec

	// Version cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Redirect service
	RedirectsTotal  *prometheus.CounterVec
	UpdateRunsTotal *prometheus.CounterVec
	UpdateDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_upstream_requests_total",
				Help: "Total number of requests to upstream APIs",
			},
			[]string{"host", "status"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginindex_upstream_request_duration_seconds",
				Help:    "Upstream request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
		UpstreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_upstream_errors_total",
				Help: "Total number of upstream transport failures",
			},
			[]string{"host"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginindex_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		StageItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pluginindex_stage_items",
				Help: "Items produced by the last run of each stage",
			},
			[]string{"stage"},
		),
		StageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_stage_errors_total",
				Help: "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),
		EnrichSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_enrich_skipped_total",
				Help: "Records left without repository data",
			},
			[]string{"reason"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"type"},
		),
		RedirectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_redirects_total",
				Help: "Total number of redirects served",
			},
			[]string{"route", "status"},
		),
		UpdateRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginindex_update_runs_total",
				Help: "Total number of catalog update runs",
			},
			[]string{"trigger", "outcome"},
		),
		UpdateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginindex_update_duration_seconds",
				Help:    "Catalog update run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"trigger"},
		),
	}

	registry.MustRegister(
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.UpstreamErrorsTotal,
		m.StageDuration,
		m.StageItems,
		m.StageErrorsTotal,
		m.EnrichSkippedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RedirectsTotal,
		m.UpdateRunsTotal,
		m.UpdateDuration,
	)
	return m
}

// Handler returns the /metrics handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRedirect counts one redirect response.
func (m *Metrics) RecordRedirect(route string, status int) {
	m.RedirectsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordUpdate counts one update run and observes its duration.
func (m *Metrics) RecordUpdate(trigger string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.UpdateRunsTotal.WithLabelValues(trigger, outcome).Inc()
	m.UpdateDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, statusCode int, d time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(host, strconv.Itoa(statusCode)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.UpstreamErrorsTotal.WithLabelValues(host).Inc()
}

func (m *Metrics) OnStageStart(context.Context, string) {}

func (m *Metrics) OnStageComplete(_ context.Context, stage string, items int, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageErrorsTotal.WithLabelValues(stage).Inc()
		return
	}
	m.StageItems.WithLabelValues(stage).Set(float64(items))
}

func (m *Metrics) OnEnrichSkipped(_ context.Context, reason string) {
	m.EnrichSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(context.Context, string, int) {}

var (
	_ PipelineHooks = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
	_ HTTPHooks     = (*Metrics)(nil)
)
