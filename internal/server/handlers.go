package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/docparse-io/docparse/internal/parser"
)

// healthHandler reports the gRPC-style serving status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "SERVING"})
}

// parseHandler converts one uploaded document into Markdown.
func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, "Failed to read file data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if format == "" {
		format = "unknown"
	}

	// Content sniffing is advisory only: a mismatch is logged, the
	// extension still decides the format.
	if mt := mimetype.Detect(data); !mimetype.EqualsAny(mt.String(), extensionMIMEs(header.Filename)...) {
		slog.Warn("uploaded content does not match its extension",
			"name", header.Filename, "detected", mt.String())
	}

	if err := s.parseSlots.Acquire(r.Context(), 1); err != nil {
		s.writeError(w, "Request canceled", http.StatusServiceUnavailable)
		return
	}
	defer s.parseSlots.Release(1)

	start := time.Now()
	result, err := s.parser.Parse(r.Context(), header.Filename, data, formOptions(r))
	elapsed := time.Since(start)

	switch {
	case parser.IsValidationError(err):
		parseRequestsTotal.WithLabelValues(format, "invalid").Inc()
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		parseRequestsTotal.WithLabelValues(format, "error").Inc()
		slog.Error("parse failed", "name", header.Filename, "error", err)
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Wall clock measured here wins over the orchestrator-local value.
	result.Metadata.ParseTimeMS = elapsed.Milliseconds()

	parseRequestsTotal.WithLabelValues(format, "ok").Inc()
	parseDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	parseContentLength.WithLabelValues(format).Observe(float64(utf8.RuneCountInString(result.Content)))

	s.writeJSON(w, http.StatusOK, ParseResponse{
		Content:  result.Content,
		Metadata: result.Metadata,
	})
}

// formOptions reads the optional parse knobs from the multipart form.
func formOptions(r *http.Request) parser.Options {
	opts := parser.DefaultOptions()
	if v := r.FormValue("enable_ocr"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.EnableOCR = b
		}
	}
	if v := r.FormValue("enable_caption"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.EnableCaption = b
		}
	}
	if v := r.FormValue("max_image_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxImageSize = n
		}
	}
	if v := r.FormValue("language"); v != "" {
		opts.Language = v
	}
	return opts
}

// extensionMIMEs lists the MIME types an extension legitimately maps to.
func extensionMIMEs(fileName string) []string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return []string{"application/pdf"}
	case ".docx", ".doc":
		return []string{
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/msword",
			"application/zip",
		}
	case ".pptx":
		return []string{
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/zip",
		}
	default:
		return []string{"text/plain; charset=utf-8", "text/plain"}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ParseResponse{Error: message})
}
