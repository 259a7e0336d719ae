package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docparse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docparse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	parseRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docparse_parse_requests_total",
			Help: "Total number of parse requests",
		},
		[]string{"format", "status"}, // status: ok, invalid, error
	)

	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docparse_parse_duration_seconds",
			Help:    "Document parse duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"format"},
	)

	parseContentLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docparse_parse_content_length",
			Help:    "Length of the assembled Markdown in runes",
			Buckets: []float64{0, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
		[]string{"format"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docparse_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)
)
