package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/imagefilter"
	"github.com/docparse-io/docparse/internal/mdtable"
)

// ExtractDOCX walks word/document.xml in body order: paragraphs become
// text fragments, tables go through the Markdown normalizer, and inline
// images are resolved via the relationship map, filtered, and written to
// the temp dir so placeholders stay interleaved with the paragraph flow.
// Any failure falls back to the plain-text path.
func ExtractDOCX(docPath, tempDir string) (fragment.PageResult, error) {
	page, err := extractDOCXRich(docPath, tempDir)
	if err == nil {
		return page, nil
	}
	slog.Warn("docx rich extraction failed, using simple fallback", "path", docPath, "error", err)
	return extractDOCXSimple(docPath)
}

func extractDOCXRich(docPath, tempDir string) (fragment.PageResult, error) {
	page := fragment.PageResult{PageIndex: 0}

	zr, err := zip.OpenReader(docPath)
	if err != nil {
		return page, fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	body, err := readZipFile(&zr.Reader, "word/document.xml")
	if err != nil {
		return page, fmt.Errorf("read document body: %w", err)
	}
	rels, err := parseRelationships(&zr.Reader, "word/_rels/document.xml.rels")
	if err != nil {
		return page, err
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	order := 0
	imageNum := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			text, blipIDs := docxParagraph(dec)
			if text != "" {
				page.Fragments = append(page.Fragments, fragment.Text(order, text))
				order++
			}
			for _, id := range blipIDs {
				ref, ok := saveDOCXImage(&zr.Reader, rels, id, tempDir, &imageNum)
				if !ok {
					continue
				}
				page.Fragments = append(page.Fragments, fragment.ImagePlaceholder(order, ref))
				page.ImageRefs = append(page.ImageRefs, ref)
				order++
			}
		case "tbl":
			rows := docxTableRows(dec)
			if md := mdtable.FromRows(rows); md != "" {
				page.Fragments = append(page.Fragments, fragment.Table(order, md))
				order++
			}
		}
	}
	return page, nil
}

// docxParagraph reads one <w:p> element, returning the joined run text and
// the relationship ids of any embedded blips, in paragraph order.
func docxParagraph(dec *xml.Decoder) (string, []string) {
	var runs []string
	var blipIDs []string
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				runs = append(runs, readElementText(dec, &depth))
			case "tab":
				runs = append(runs, "\t")
			case "br":
				runs = append(runs, "\n")
			case "blip":
				// r:embed is the normal case; r:link covers linked media.
				if id := attr(t, "embed"); id != "" {
					blipIDs = append(blipIDs, id)
				} else if id := attr(t, "link"); id != "" {
					blipIDs = append(blipIDs, id)
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	return strings.TrimSpace(strings.Join(runs, "")), blipIDs
}

// docxTableRows reads one <w:tbl> element into a cell grid.
func docxTableRows(dec *xml.Decoder) [][]string {
	var rows [][]string
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "tr" {
				rows = append(rows, docxTableRow(dec, &depth))
			}
		case xml.EndElement:
			depth--
		}
	}
	return rows
}

func docxTableRow(dec *xml.Decoder, outerDepth *int) []string {
	var cells []string
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "tc" {
				cells = append(cells, docxTableCell(dec, &depth))
			}
		case xml.EndElement:
			if depth == 0 {
				*outerDepth--
				return cells
			}
			depth--
		}
	}
	return cells
}

func docxTableCell(dec *xml.Decoder, outerDepth *int) string {
	var texts []string
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				texts = append(texts, readElementText(dec, &depth))
			}
		case xml.EndElement:
			if depth == 0 {
				*outerDepth--
				return strings.TrimSpace(strings.Join(texts, " "))
			}
			depth--
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// saveDOCXImage resolves a blip relationship to its media part, applies
// the icon and background filters, and writes survivors to the temp dir.
func saveDOCXImage(zr *zip.Reader, rels map[string]relationship, relID, tempDir string, imageNum *int) (string, bool) {
	rel, ok := rels[relID]
	if !ok || rel.Mode == "External" {
		return "", false
	}

	target := resolveRelTarget("word", rel.Target)
	ext := strings.ToLower(path.Ext(target))
	if !allowedImageExts[ext] {
		slog.Debug("docx image format skipped", "target", target)
		return "", false
	}

	data, err := readZipFile(zr, target)
	if err != nil {
		slog.Warn("docx image part unreadable", "target", target, "error", err)
		return "", false
	}
	if imagefilter.IsIcon(data) {
		slog.Debug("docx image skipped as icon", "target", target, "size", len(data))
		return "", false
	}
	// Shape dimensions are not tracked for DOCX, so the filter decodes.
	if imagefilter.IsBackground(data, 0, 0) {
		slog.Debug("docx image skipped as background", "target", target)
		return "", false
	}

	*imageNum++
	ref := filepath.Join(tempDir, fmt.Sprintf("docx_image_%d%s", *imageNum, ext))
	if err := os.WriteFile(ref, data, 0o600); err != nil {
		slog.Warn("docx image write failed", "ref", ref, "error", err)
		return "", false
	}
	return ref, true
}

// extractDOCXSimple is the fallback path: paragraph text plus a naive
// "cell | cell" join for tables, no images.
func extractDOCXSimple(docPath string) (fragment.PageResult, error) {
	page := fragment.PageResult{PageIndex: 0}

	zr, err := zip.OpenReader(docPath)
	if err != nil {
		return page, fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	body, err := readZipFile(&zr.Reader, "word/document.xml")
	if err != nil {
		return page, fmt.Errorf("read document body: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	order := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			text, _ := docxParagraph(dec)
			if text != "" {
				page.Fragments = append(page.Fragments, fragment.Text(order, text))
				order++
			}
		case "tbl":
			for _, row := range docxTableRows(dec) {
				line := strings.TrimSpace(strings.Join(row, " | "))
				if line == "" {
					continue
				}
				page.Fragments = append(page.Fragments, fragment.Text(order, line))
				order++
			}
		}
	}
	return page, nil
}
