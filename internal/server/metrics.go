package server

import (
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retype_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retype_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Translation metrics
	translateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retype_translate_requests_total",
			Help: "Total number of document translation requests",
		},
		[]string{"transport", "status"}, // transport: http, websocket
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retype_processing_duration_seconds",
			Help:    "Document processing duration per stage in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	segmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retype_segments_total",
			Help: "Segments by outcome: accepted or the skip reason",
		},
		[]string{"outcome"},
	)

	layoutDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retype_layout_degraded_total",
			Help: "Patches placed with residual overlap after the attempt cap",
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retype_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retype_upload_size_bytes",
			Help:    "Size of uploaded PDF files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 25 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retype_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retype_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observeResult records the per-stage timings and outcomes of one document.
func observeResult(res *pipeline.Result) {
	for stage, d := range res.Report.StageDurations() {
		processingDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	}
	for _, o := range res.Outcomes {
		observeOutcome(o)
	}
}

func observeOutcome(o layout.Outcome) {
	if !o.Accepted {
		segmentsTotal.WithLabelValues(string(o.Reason)).Inc()
		return
	}
	segmentsTotal.WithLabelValues("accepted").Inc()
	if o.Placement != nil && o.Placement.Degraded {
		layoutDegradedTotal.Inc()
	}
}
