// Package server exposes the parse service over HTTP: one multipart
// parse endpoint, a health probe, and Prometheus metrics.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/docparse-io/docparse/internal/config"
	"github.com/docparse-io/docparse/internal/parser"
)

// parserInterface defines what the server needs from the orchestrator.
type parserInterface interface {
	Parse(ctx context.Context, fileName string, fileContent []byte, opts parser.Options) (parser.ParseResult, error)
}

// Server holds the HTTP server state and dependencies. A weighted
// semaphore bounds concurrent parses; requests beyond the cap queue on
// it rather than competing for the worker pools.
type Server struct {
	parser      parserInterface
	maxUploadMB int64
	parseSlots  *semaphore.Weighted
}

// ParseResponse is the JSON body of POST /v1/parse.
type ParseResponse struct {
	Content  string               `json:"content"`
	Metadata parser.ParseMetadata `json:"metadata"`
	Error    string               `json:"error,omitempty"`
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// NewServer creates a server around an existing parser.
func NewServer(cfg config.ServerConfig, p parserInterface) *Server {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Server{
		parser:      p,
		maxUploadMB: int64(cfg.MaxUploadMB),
		parseSlots:  semaphore.NewWeighted(int64(maxWorkers)),
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.requestMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/parse", s.requestMiddleware(s.parseHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
