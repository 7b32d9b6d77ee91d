// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menu_qa_request_duration_seconds",
			Help:    "Total time taken to answer a question in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
		},
		[]string{"mode", "cached"},
	)

	TimeToFirstDelta = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menu_qa_time_to_first_delta_seconds",
			Help:    "Time from admission to the first streamed delta in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
		},
		[]string{"intent"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_request_count_total",
			Help: "Total number of questions processed",
		},
		[]string{"mode", "status"},
	)

	GovernanceRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_governance_rejections_total",
			Help: "Requests rejected before generation, by error code",
		},
		[]string{"code"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_cache_lookups_total",
			Help: "Answer cache lookups by result",
		},
		[]string{"result"},
	)

	IntentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_intent_total",
			Help: "Classified question intents",
		},
		[]string{"intent"},
	)

	InflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menu_qa_inflight_requests",
			Help: "Current Inflight Requests",
		},
	)

	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menu_qa_indexed_chunks",
			Help: "Chunks in the current corpus index, zero while cold",
		},
	)

	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menu_qa_embedding_duration_seconds",
			Help:    "Embedding call latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"purpose"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_error_count",
			Help: "Error count",
		},
		[]string{"from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_qa_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
