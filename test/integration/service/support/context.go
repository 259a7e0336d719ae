// Package support carries the godog step definitions and test harness
// for the service integration suite. The server under test runs
// in-process with a stub OCR engine, so the suite needs no model files.
package support

import (
	"net/http"
	"net/http/httptest"

	"github.com/docparse-io/docparse/internal/config"
	"github.com/docparse-io/docparse/internal/ocr"
	"github.com/docparse-io/docparse/internal/pagepool"
	"github.com/docparse-io/docparse/internal/parser"
	"github.com/docparse-io/docparse/internal/server"
)

// stubEngine recognizes every image as the same text. It stands in for
// the ONNX engine so scenarios can assert on OCR plumbing end to end.
type stubEngine struct {
	text string
}

func (s *stubEngine) Recognize([]byte) (string, error) { return s.text, nil }
func (s *stubEngine) Close() error                     { return nil }

// TestContext holds the state shared by the steps of one scenario.
type TestContext struct {
	httpServer *httptest.Server
	pagePool   *pagepool.Pool
	ocrPool    *ocr.Pool

	lastStatus   int
	lastContent  string
	lastError    string
	lastMetadata map[string]float64
}

// NewTestContext creates an empty context; the server starts on demand.
func NewTestContext() *TestContext {
	return &TestContext{}
}

// startServer boots the full stack: page pool, stub OCR pool, parser,
// and HTTP facade.
func (c *TestContext) startServer() error {
	if c.httpServer != nil {
		return nil
	}

	c.pagePool = pagepool.New(2)

	var err error
	c.ocrPool, err = ocr.NewPool(2, func() (ocr.Engine, error) {
		return &stubEngine{text: "STOP"}, nil
	})
	if err != nil {
		return err
	}

	docParser := parser.New(c.pagePool, c.ocrPool, "")
	srv := server.NewServer(config.ServerConfig{MaxWorkers: 4, MaxUploadMB: 50}, docParser)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	c.httpServer = httptest.NewServer(mux)
	return nil
}

// Cleanup tears down the server and the pools.
func (c *TestContext) Cleanup() error {
	if c.httpServer != nil {
		c.httpServer.Close()
		c.httpServer = nil
	}
	if c.ocrPool != nil {
		c.ocrPool.Shutdown()
		c.ocrPool = nil
	}
	if c.pagePool != nil {
		c.pagePool.Shutdown()
		c.pagePool = nil
	}
	return nil
}
