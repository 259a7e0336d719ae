package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/imagefilter"
	"github.com/docparse-io/docparse/internal/mdtable"
)

// pdfMinImageDim is the edge below which page images are ignored.
const pdfMinImageDim = 50

// PDFPageCount returns the number of pages.
func PDFPageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return n, nil
}

// ExtractPDFPage extracts one page: tables are detected first, page text
// outside the table regions becomes a text fragment, each table goes
// through the Markdown normalizer, and page images survive the size and
// background filters as PNG files under the temp dir. Order keys follow
// text, then tables, then images.
func ExtractPDFPage(pdfPath string, pageIndex int, tempDir string) (fragment.PageResult, error) {
	page := fragment.PageResult{PageIndex: pageIndex}

	reader, err := pdf.Open(pdfPath)
	if err != nil {
		return page, fmt.Errorf("open pdf: %w", err)
	}
	if pageIndex < 0 || pageIndex >= reader.NumPage() {
		return page, fmt.Errorf("page %d out of range", pageIndex)
	}

	rows := pageTextRows(reader.Page(pageIndex + 1))
	tables := detectTables(rows)

	order := 0
	if text := pageTextOutsideTables(rows, tables); text != "" {
		page.Fragments = append(page.Fragments, fragment.Text(order, text))
		order++
	}
	for _, tbl := range tables {
		if md := mdtable.FromRows(tbl.cells); md != "" {
			page.Fragments = append(page.Fragments, fragment.Table(order, md))
			order++
		}
	}

	refs, err := extractPDFPageImages(pdfPath, pageIndex, tempDir)
	if err != nil {
		// Image extraction failure costs this page its figures, not its text.
		slog.Warn("pdf image extraction failed", "page", pageIndex, "error", err)
		refs = nil
	}
	for _, ref := range refs {
		page.Fragments = append(page.Fragments, fragment.ImagePlaceholder(order, ref))
		page.ImageRefs = append(page.ImageRefs, ref)
		order++
	}
	return page, nil
}

// pageTextRows pulls positioned text rows from a page. dslipak/pdf groups
// words by baseline already; each row keeps its Y plus X-sorted words.
func pageTextRows(p pdf.Page) []textRow {
	if p.V.IsNull() {
		return nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		slog.Warn("pdf text rows unavailable", "error", err)
		return nil
	}

	out := make([]textRow, 0, len(rows))
	for _, r := range rows {
		tr := textRow{y: float64(r.Position)}
		for _, t := range r.Content {
			s := strings.TrimSpace(t.S)
			if s == "" {
				continue
			}
			tr.words = append(tr.words, textWord{x: t.X, w: t.W, s: s})
		}
		if len(tr.words) > 0 {
			out = append(out, tr)
		}
	}
	return out
}

// pageTextOutsideTables joins the words of every row whose vertical
// center lies outside all detected table regions.
func pageTextOutsideTables(rows []textRow, tables []detectedTable) string {
	var lines []string
	for _, r := range rows {
		if rowInTables(r, tables) {
			continue
		}
		parts := make([]string, len(r.words))
		for i, w := range r.words {
			parts[i] = w.s
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func rowInTables(r textRow, tables []detectedTable) bool {
	for _, t := range tables {
		if r.y >= t.minY && r.y <= t.maxY {
			return true
		}
	}
	return false
}

// extractPDFPageImages rasters the page's embedded images into a scratch
// directory, filters them, and re-encodes survivors as
// page_{i}_image_{j}.png in the temp dir.
func extractPDFPageImages(pdfPath string, pageIndex int, tempDir string) ([]string, error) {
	scratch, err := os.MkdirTemp(tempDir, fmt.Sprintf("pdfimg_%d_", pageIndex))
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	pageNo := strconv.Itoa(pageIndex + 1)
	if err := api.ExtractImagesFile(pdfPath, scratch, []string{pageNo}, nil); err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, fmt.Errorf("read scratch dir: %w", err)
	}

	var refs []string
	imageNum := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(scratch, entry.Name())
		data, err := os.ReadFile(src) //nolint:gosec // scratch dir is request-scoped
		if err != nil {
			slog.Warn("pdf image unreadable", "file", src, "error", err)
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			slog.Debug("pdf image undecodable, skipped", "file", src, "error", err)
			continue
		}
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		if w < pdfMinImageDim || h < pdfMinImageDim {
			slog.Debug("pdf image below minimum size", "file", src, "width", w, "height", h)
			continue
		}
		if imagefilter.IsBackground(data, w, h) {
			slog.Debug("pdf image skipped as background", "file", src, "width", w, "height", h)
			continue
		}

		imageNum++
		ref := filepath.Join(tempDir, fmt.Sprintf("page_%d_image_%d.png", pageIndex, imageNum))
		if err := writePNG(ref, img); err != nil {
			slog.Warn("pdf image write failed", "ref", ref, "error", err)
			imageNum--
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func writePNG(ref string, img image.Image) error {
	f, err := os.Create(ref) //nolint:gosec // ref is under the request temp dir
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
