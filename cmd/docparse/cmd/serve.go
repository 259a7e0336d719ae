package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docparse-io/docparse/internal/config"
	"github.com/docparse-io/docparse/internal/ocr"
	"github.com/docparse-io/docparse/internal/pagepool"
	"github.com/docparse-io/docparse/internal/parser"
	"github.com/docparse-io/docparse/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP parse service",
	Long: `Start an HTTP server that converts uploaded documents to Markdown.

Endpoints:
  POST /v1/parse - Convert an uploaded document
  GET  /health   - Health check
  GET  /metrics  - Prometheus metrics

Examples:
  docparse serve
  docparse serve --port 8080
  docparse serve --host 0.0.0.0 --preload-ocr=false`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	preload := cfg.Server.PreloadOCR
	if cmd.Flags().Changed("preload-ocr") {
		preload, _ = cmd.Flags().GetBool("preload-ocr")
	}
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	pagePool := pagepool.New(pagepool.SizeFor(cfg.PagePool))
	defer pagePool.Shutdown()

	docParser := parser.New(pagePool, nil, "")

	if preload {
		ocrPool, err := buildOCRPool(cfg.OCR)
		if err != nil {
			return fmt.Errorf("preload ocr pool: %w", err)
		}
		defer ocrPool.Shutdown()
		docParser.SetOCRPool(ocrPool)
	} else {
		// Lazy start: requests arriving before the pool is up parse
		// without OCR rather than waiting on model load.
		var lazy lazyOCRStarter
		lazy.Start(func() (*ocr.Pool, error) { return buildOCRPool(cfg.OCR) }, docParser.SetOCRPool)
		defer lazy.Drain()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.NewServer(cfg.Server, docParser)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("starting parse server", "host", host, "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context canceled, initiating shutdown")
	}

	slog.Info("starting graceful shutdown", "timeout_sec", shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	slog.Info("graceful shutdown completed")
	return nil
}

// lazyOCRStarter builds the OCR pool off the startup path and hands it
// to the parser once ready. Drain stops whatever was built by the time
// the server shuts down.
type lazyOCRStarter struct {
	pool atomic.Pointer[ocr.Pool]
}

// Start kicks off the build in the background; on failure the service
// keeps running without recognition.
func (l *lazyOCRStarter) Start(build func() (*ocr.Pool, error), attach func(*ocr.Pool)) {
	go func() {
		pool, err := build()
		if err != nil {
			slog.Error("ocr pool unavailable, recognition disabled", "error", err)
			return
		}
		l.pool.Store(pool)
		attach(pool)
	}()
}

// Drain shuts the pool down if the build finished.
func (l *lazyOCRStarter) Drain() {
	if pool := l.pool.Load(); pool != nil {
		pool.Shutdown()
	}
}

// buildOCRPool constructs the recognition pool from the OCR section:
// each worker gets its own engine instance.
func buildOCRPool(cfg config.OCRConfig) (*ocr.Pool, error) {
	workers := ocr.DefaultWorkers(cfg.MaxWorkers)
	return ocr.NewPool(workers, func() (ocr.Engine, error) {
		return ocr.NewONNXEngine(ocr.Config{
			ModelPath:  cfg.ModelPath,
			DictPath:   cfg.DictPath,
			NumThreads: cfg.NumThreads,
		})
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "", "server host")
	serveCmd.Flags().IntP("port", "p", 50051, "server port")
	serveCmd.Flags().Bool("preload-ocr", true, "load OCR engines before accepting requests")
	serveCmd.Flags().Int("shutdown-timeout", 5, "shutdown timeout in seconds")
}
