package ocr

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Charset maps CTC class indices to dictionary tokens.
type Charset struct {
	tokens []string
}

// LoadCharset reads a recognition dictionary, one token per line.
// A trailing space token is appended so models trained with
// use_space_char can emit spaces.
func LoadCharset(path string) (*Charset, error) {
	f, err := os.Open(path) //nolint:gosec // dictionary path comes from config
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary %s is empty", path)
	}

	tokens = append(tokens, " ")
	return &Charset{tokens: tokens}, nil
}

// NewCharset builds a charset directly from tokens, used by tests.
func NewCharset(tokens []string) *Charset {
	return &Charset{tokens: tokens}
}

// Size returns the number of tokens.
func (c *Charset) Size() int {
	return len(c.tokens)
}

// LookupToken returns the token for an index, or "" when out of range.
func (c *Charset) LookupToken(idx int) string {
	if idx < 0 || idx >= len(c.tokens) {
		return ""
	}
	return c.tokens[idx]
}
