/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_api_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventdesk_api_request_duration_seconds",
		Help:    "HTTP request latency by method, route pattern and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventdesk_api_active_connections",
		Help: "HTTP requests currently in flight.",
	})

	// Database
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventdesk_database_query_duration_seconds",
		Help:    "Database operation latency by operation and table.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_database_errors_total",
		Help: "Database operation failures.",
	}, []string{"operation", "error_type"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventdesk_database_connections_active",
		Help: "Open database connections.",
	})

	// Timetable resolution
	TimetableResolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_timetable_resolves_total",
		Help: "Timetable resolutions by caller.",
	}, []string{"source"})

	TimetableRowsResolved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventdesk_timetable_rows_resolved",
		Help:    "Rows produced per timetable resolution.",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
	})

	TimetableCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_timetable_cache_total",
		Help: "Resolved timetable cache lookups by result.",
	}, []string{"result"})

	// Rendering and artifacts
	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventdesk_render_duration_seconds",
		Help:    "Headless browser capture latency by output format.",
		Buckets: []float64{.25, .5, 1, 2, 5, 10, 30},
	}, []string{"format"})

	RenderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_render_errors_total",
		Help: "Failed captures by output format.",
	}, []string{"format"})

	ArtifactsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_artifacts_generated_total",
		Help: "Artifacts written to object storage by type.",
	}, []string{"type"})

	ArtifactBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_artifact_bytes_total",
		Help: "Bytes written to object storage by artifact type.",
	}, []string{"type"})

	// Events
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_events_published_total",
		Help: "Events published on the in-process bus by type.",
	}, []string{"type"})

	EventBridgeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventdesk_event_bridge_errors_total",
		Help: "NATS bridge failures by direction.",
	}, []string{"direction"})

	CacheConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventdesk_cache_connection_status",
		Help: "1 when the Redis cache is reachable, 0 otherwise.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
