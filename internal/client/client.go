// Package client talks to a running docparse server: the same parse the
// `parse` command does locally, done over HTTP by a shared service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/avast/retry-go/v4"

	"github.com/docparse-io/docparse/internal/config"
	"github.com/docparse-io/docparse/internal/parser"
)

// Client issues parse requests against a remote server. Transient
// failures (network errors, 5xx) are retried; validation rejections are
// not.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// New builds a client from the client configuration section.
func New(cfg config.ClientConfig) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    "http://" + cfg.Addr(),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		maxRetries: maxRetries,
	}
}

// ParseFile uploads one document and returns the parse result. A non-2xx
// response with a populated error body becomes an error carrying the
// server's message.
func (c *Client) ParseFile(ctx context.Context, fileName string, fileContent []byte, opts parser.Options) (parser.ParseResult, error) {
	var result parser.ParseResult

	err := retry.Do(
		func() error {
			res, err := c.parseOnce(ctx, fileName, fileContent, opts)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(uint(c.maxRetries)), //nolint:gosec // bounded small config value
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	return result, err
}

func (c *Client) parseOnce(ctx context.Context, fileName string, fileContent []byte, opts parser.Options) (parser.ParseResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return parser.ParseResult{}, retry.Unrecoverable(fmt.Errorf("build form: %w", err))
	}
	if _, err := fw.Write(fileContent); err != nil {
		return parser.ParseResult{}, retry.Unrecoverable(fmt.Errorf("build form: %w", err))
	}
	fields := map[string]string{
		"enable_ocr":     strconv.FormatBool(opts.EnableOCR),
		"enable_caption": strconv.FormatBool(opts.EnableCaption),
		"max_image_size": strconv.Itoa(opts.MaxImageSize),
		"language":       opts.Language,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return parser.ParseResult{}, retry.Unrecoverable(fmt.Errorf("build form: %w", err))
		}
	}
	if err := w.Close(); err != nil {
		return parser.ParseResult{}, retry.Unrecoverable(fmt.Errorf("build form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return parser.ParseResult{}, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return parser.ParseResult{}, fmt.Errorf("parse request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return parser.ParseResult{}, fmt.Errorf("read response: %w", err)
	}

	var pr struct {
		Content  string               `json:"content"`
		Metadata parser.ParseMetadata `json:"metadata"`
		Error    string               `json:"error"`
	}
	if err := json.Unmarshal(raw, &pr); err != nil {
		return parser.ParseResult{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return parser.ParseResult{Content: pr.Content, Metadata: pr.Metadata}, nil
	case resp.StatusCode >= 500:
		// Server-side failure, worth another attempt.
		return parser.ParseResult{}, fmt.Errorf("server error (status %d): %s", resp.StatusCode, pr.Error)
	default:
		return parser.ParseResult{}, retry.Unrecoverable(
			fmt.Errorf("request rejected (status %d): %s", resp.StatusCode, pr.Error))
	}
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", fmt.Errorf("decode health response: %w", err)
	}
	return health.Status, nil
}
