package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docparse-io/docparse/internal/config"
	"github.com/docparse-io/docparse/internal/parser"
)

func clientFor(t *testing.T, ts *httptest.Server, maxRetries int) *Client {
	t.Helper()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return New(config.ClientConfig{
		Host:       u.Hostname(),
		Port:       port,
		TimeoutSec: 5,
		MaxRetries: maxRetries,
	})
}

func TestParseFileSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("enable_ocr"))
		assert.Equal(t, "ch", r.FormValue("language"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "doc.md", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":  "# parsed",
			"metadata": parser.ParseMetadata{PageCount: 3},
		})
	}))
	defer ts.Close()

	c := clientFor(t, ts, 1)
	res, err := c.ParseFile(context.Background(), "doc.md", []byte("# body"), parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "# parsed", res.Content)
	assert.Equal(t, 3, res.Metadata.PageCount)
}

func TestParseFileRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "transient"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "ok"})
	}))
	defer ts.Close()

	c := clientFor(t, ts, 3)
	res, err := c.ParseFile(context.Background(), "doc.md", []byte("x"), parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestParseFileDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported file type"})
	}))
	defer ts.Close()

	c := clientFor(t, ts, 3)
	_, err := c.ParseFile(context.Background(), "doc.xlsx", []byte("x"), parser.DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "SERVING"})
	}))
	defer ts.Close()

	c := clientFor(t, ts, 1)
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SERVING", status)
}
