// Package extractor contains the per-format page extractors. Each exposes
// top-level functions taking (source path, page index, temp dir) so page
// workers stay stateless: every call opens its own handle.
package extractor

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// DecodeMarkdown decodes raw Markdown bytes. Valid UTF-8 is returned
// verbatim; otherwise GB18030 and GBK are tried, and Latin-1 is the final
// fallback, which always succeeds.
func DecodeMarkdown(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if s, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data); err == nil {
		return string(s)
	}
	if s, err := simplifiedchinese.GBK.NewDecoder().Bytes(data); err == nil {
		return string(s)
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(s)
}

// ExtractMarkdownFile reads and decodes a Markdown file.
func ExtractMarkdownFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is request-scoped
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}
	return DecodeMarkdown(data), nil
}
