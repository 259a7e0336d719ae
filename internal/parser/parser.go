// Package parser orchestrates a document parse: fan page extraction out
// to the shared page pool, run OCR over the surviving images, and
// assemble one Markdown artifact with metadata counters.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/docparse-io/docparse/internal/extractor"
	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/narrative"
	"github.com/docparse-io/docparse/internal/ocr"
	"github.com/docparse-io/docparse/internal/pagepool"
)

const (
	// pageTimeout bounds how long the gather phase waits for the page
	// workers; stragglers are skipped, never fatal.
	pageTimeout = 300 * time.Second
	// imageTimeout bounds one OCR recognition.
	imageTimeout = 180 * time.Second

	// ocrInFlight / ocrInFlightPPTX cap concurrent OCR submissions per
	// request. PPTX decks tend to carry many small pictures, so they get
	// the wider lane.
	ocrInFlight     = 5
	ocrInFlightPPTX = 10

	pageBreak = "\n\n--- Page Break ---\n\n"
)

// supportedExtensions maps recognized file extensions to their format.
var supportedExtensions = map[string]string{
	".pdf":      "pdf",
	".md":       "markdown",
	".markdown": "markdown",
	".docx":     "docx",
	".doc":      "docx",
	".pptx":     "pptx",
}

// SupportedExtension reports whether the file name carries a parseable
// extension.
func SupportedExtension(fileName string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// Parser runs document parses against the shared worker pools. The page
// pool is required; the OCR pool may be nil, which disables recognition.
type Parser struct {
	pages   *pagepool.Pool
	ocrPool atomic.Pointer[ocr.Pool]
	tmpDir  string
}

// New returns a parser backed by the given pools. tmpRoot is where
// per-request temp directories are created; "" uses the system default.
func New(pages *pagepool.Pool, ocrPool *ocr.Pool, tmpRoot string) *Parser {
	p := &Parser{pages: pages, tmpDir: tmpRoot}
	if ocrPool != nil {
		p.ocrPool.Store(ocrPool)
	}
	return p
}

// SetOCRPool attaches (or replaces) the OCR pool. Used when the pool is
// built in the background instead of before the server starts.
func (p *Parser) SetOCRPool(pool *ocr.Pool) {
	p.ocrPool.Store(pool)
}

// Parse converts one uploaded document into a Markdown artifact.
// Validation failures return a *ValidationError; anything else that
// escapes is a fatal parse error. Per-page and per-image failures are
// absorbed: they cost their own output only.
func (p *Parser) Parse(ctx context.Context, fileName string, fileContent []byte, opts Options) (ParseResult, error) {
	start := time.Now()

	if len(fileContent) == 0 {
		return ParseResult{}, &ValidationError{Reason: "file content is empty"}
	}
	if strings.TrimSpace(fileName) == "" {
		return ParseResult{}, &ValidationError{Reason: "file name is required"}
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	format, ok := supportedExtensions[ext]
	if !ok {
		return ParseResult{}, &ValidationError{Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}

	// Markdown needs no temp dir, no pools: decode and return.
	if format == "markdown" {
		return ParseResult{
			Content:  extractor.DecodeMarkdown(fileContent),
			Metadata: ParseMetadata{ParseTimeMS: time.Since(start).Milliseconds()},
		}, nil
	}

	tempDir, err := os.MkdirTemp(p.tmpDir, "docparse-*")
	if err != nil {
		return ParseResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			slog.Warn("temp dir cleanup failed", "dir", tempDir, "error", err)
		}
	}()

	srcPath := filepath.Join(tempDir, "document"+ext)
	if err := os.WriteFile(srcPath, fileContent, 0o600); err != nil {
		return ParseResult{}, fmt.Errorf("write source file: %w", err)
	}

	var (
		pages     []fragment.PageResult
		pageCount int
		ocrLimit  int64 = ocrInFlight
	)
	switch format {
	case "pdf":
		n, err := extractor.PDFPageCount(srcPath)
		if err != nil {
			return ParseResult{}, fmt.Errorf("parse pdf: %w", err)
		}
		pageCount = n
		pages = p.extractPages(ctx, n, func(i int) (fragment.PageResult, error) {
			return extractor.ExtractPDFPage(srcPath, i, tempDir)
		})
	case "docx":
		pages = p.extractPages(ctx, 1, func(int) (fragment.PageResult, error) {
			return extractor.ExtractDOCX(srcPath, tempDir)
		})
		if len(pages) == 0 {
			return ParseResult{}, fmt.Errorf("parse docx: extraction produced no result")
		}
	case "pptx":
		n, err := extractor.PPTXSlideCount(srcPath)
		if err != nil {
			return ParseResult{}, fmt.Errorf("parse pptx: %w", err)
		}
		pageCount = n
		ocrLimit = ocrInFlightPPTX
		pages = p.extractPages(ctx, n, func(i int) (fragment.PageResult, error) {
			return extractor.ExtractPPTXSlide(srcPath, i, tempDir)
		})
	}

	fragment.SortPages(pages)
	for i := range pages {
		pages[i].SortFragments()
	}

	var refs []string
	for _, pg := range pages {
		refs = append(refs, pg.ImageRefs...)
	}

	var ocrTexts map[string]string
	if ocrPool := p.ocrPool.Load(); opts.EnableOCR && ocrPool != nil && len(refs) > 0 {
		ocrTexts = p.runOCR(ctx, ocrPool, refs, ocrLimit)
	}

	content := assemble(format, pages, ocrTexts)

	meta := ParseMetadata{
		PageCount:   pageCount,
		ImageCount:  len(refs),
		OCRCount:    len(ocrTexts),
		ParseTimeMS: time.Since(start).Milliseconds(),
	}
	for _, pg := range pages {
		meta.TableCount += pg.TableCount()
	}
	return ParseResult{Content: content, Metadata: meta}, nil
}

type pageOutcome struct {
	page fragment.PageResult
	err  error
}

// extractPages fans n page extractions out to the shared pool and
// gathers whatever completes before the deadline. A failed or timed-out
// page contributes nothing; the parse carries on without it.
func (p *Parser) extractPages(ctx context.Context, n int, extract func(int) (fragment.PageResult, error)) []fragment.PageResult {
	if n <= 0 {
		return nil
	}

	results := make(chan pageOutcome, n)
	submitted := 0
	for i := 0; i < n; i++ {
		i := i
		err := p.pages.Submit(ctx, func() {
			// The PDF reader panics on malformed objects; a panic here
			// fails this page, not the request or the shared pool.
			defer func() {
				if r := recover(); r != nil {
					results <- pageOutcome{
						page: fragment.PageResult{PageIndex: i},
						err:  fmt.Errorf("extractor panic: %v", r),
					}
				}
			}()
			page, err := extract(i)
			results <- pageOutcome{page: page, err: err}
		})
		if err != nil {
			slog.Warn("page submission rejected", "page", i, "error", err)
			continue
		}
		submitted++
	}

	deadline := time.NewTimer(pageTimeout)
	defer deadline.Stop()

	var pages []fragment.PageResult
	for received := 0; received < submitted; received++ {
		select {
		case out := <-results:
			if out.err != nil {
				slog.Warn("page extraction failed", "page", out.page.PageIndex, "error", out.err)
				continue
			}
			pages = append(pages, out.page)
		case <-deadline.C:
			slog.Warn("page extraction deadline reached",
				"received", received, "submitted", submitted)
			return pages
		case <-ctx.Done():
			slog.Warn("page extraction canceled", "error", ctx.Err())
			return pages
		}
	}
	return pages
}

// runOCR recognizes every image ref under the in-flight cap and returns
// the refs that produced non-empty text. Failures and timeouts are
// logged and omitted; nothing here fails the request.
func (p *Parser) runOCR(ctx context.Context, pool *ocr.Pool, refs []string, limit int64) map[string]string {
	out := make(map[string]string, len(refs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(limit)

	for _, ref := range refs {
		ref := ref
		if err := sem.Acquire(ctx, 1); err != nil {
			slog.Warn("ocr canceled before submission", "ref", ref, "error", err)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			data, err := os.ReadFile(ref) //nolint:gosec // ref is under the request temp dir
			if err != nil {
				slog.Warn("ocr image unreadable", "ref", ref, "error", err)
				return
			}

			imgCtx, cancel := context.WithTimeout(ctx, imageTimeout)
			defer cancel()
			text, err := pool.Recognize(imgCtx, data)
			if err != nil {
				slog.Warn("ocr failed", "ref", ref, "error", err)
				return
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			mu.Lock()
			out[ref] = text
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// assemble renders the sorted pages into the final Markdown using the
// format's join rules. Image placeholders resolve to their OCR text or
// disappear; the placeholder ordinal is the image's 1-based position
// within its page, counting filtered survivors only.
func assemble(format string, pages []fragment.PageResult, ocrTexts map[string]string) string {
	var parts []string
	for _, pg := range pages {
		text := renderPage(pg, ocrTexts)
		if text == "" {
			// An empty PDF page keeps its slot so page-break positions
			// track physical pages; empty slides and DOCX bodies vanish.
			if format != "pdf" {
				continue
			}
		} else if format == "pptx" {
			text = fmt.Sprintf("## Slide %d\n\n%s", pg.PageIndex+1, text)
		}
		parts = append(parts, text)
	}

	sep := "\n\n"
	if format == "pdf" {
		sep = pageBreak
	}
	content := strings.Join(parts, sep)
	if format == "pptx" {
		content = narrative.Optimize(content)
	}
	return content
}

func renderPage(pg fragment.PageResult, ocrTexts map[string]string) string {
	var parts []string
	imageOrdinal := 0
	for _, f := range pg.Fragments {
		switch f.Kind {
		case fragment.KindText, fragment.KindTable:
			if f.Content != "" {
				parts = append(parts, f.Content)
			}
		case fragment.KindImage:
			imageOrdinal++
			text, ok := ocrTexts[f.ImageRef]
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("[图像 %d OCR 内容]:\n%s", imageOrdinal, text))
		}
	}
	return strings.Join(parts, "\n\n")
}
