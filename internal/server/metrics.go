package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homowarp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homowarp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Estimation and warping
	estimateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homowarp_estimate_requests_total",
			Help: "Total number of homography estimations",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	warpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homowarp_warp_requests_total",
			Help: "Total number of warp requests",
		},
		[]string{"source", "status"},
	)

	warpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homowarp_warp_duration_seconds",
			Help:    "Time spent estimating and warping one image",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	warpOutputPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homowarp_warp_output_pixels",
			Help:    "Number of pixels in warped output images",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homowarp_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homowarp_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homowarp_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homowarp_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
