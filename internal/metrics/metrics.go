package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hourlyweather_provider_calls_total",
			Help: "Total upstream provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hourlyweather_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	SeriesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hourlyweather_series_ingested_total",
			Help: "Total hourly series successfully fetched and cached",
		},
		[]string{"source"},
	)

	SeriesQualityFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hourlyweather_series_quality_flags_total",
			Help: "Quality flags raised while validating fetched series",
		},
		[]string{"flag"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hourlyweather_series_cache_lookups_total",
			Help: "Series cache lookups by result",
		},
		[]string{"result"},
	)

	ViewsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hourlyweather_views_rendered_total",
			Help: "Views computed from the hourly engine",
		},
		[]string{"view"},
	)
)
