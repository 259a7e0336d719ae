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
	"strconv"
	"strings"

	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/imagefilter"
	"github.com/docparse-io/docparse/internal/mdtable"
)

// notesOrderKey sorts speaker notes after every shape on the slide.
const notesOrderKey = 9999

// PPTXSlideCount opens the archive and counts its slides.
func PPTXSlideCount(pptxPath string) (int, error) {
	zr, err := zip.OpenReader(pptxPath)
	if err != nil {
		return 0, fmt.Errorf("open pptx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	n := 0
	for zipHasFile(&zr.Reader, fmt.Sprintf("ppt/slides/slide%d.xml", n+1)) {
		n++
	}
	return n, nil
}

// ExtractPPTXSlide extracts one slide: the title (order key 0, rendered as
// a level-3 header), then shapes in native order, then speaker notes with
// a large order key so they sort last. Unreadable shapes are skipped.
func ExtractPPTXSlide(pptxPath string, slideIndex int, tempDir string) (fragment.PageResult, error) {
	page := fragment.PageResult{PageIndex: slideIndex}
	slideNum := slideIndex + 1

	zr, err := zip.OpenReader(pptxPath)
	if err != nil {
		return page, fmt.Errorf("open pptx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	slidePath := fmt.Sprintf("ppt/slides/slide%d.xml", slideNum)
	body, err := readZipFile(&zr.Reader, slidePath)
	if err != nil {
		return page, fmt.Errorf("read slide %d: %w", slideNum, err)
	}
	rels, err := parseRelationships(&zr.Reader, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum))
	if err != nil {
		return page, err
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	order := 1
	imageNum := 0
	titleSeen := false
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
		case "sp":
			text, isTitle := pptxShape(dec)
			if text == "" {
				continue
			}
			if isTitle && !titleSeen {
				titleSeen = true
				page.Fragments = append(page.Fragments, fragment.Text(0, "### "+text))
				continue
			}
			page.Fragments = append(page.Fragments, fragment.Text(order, text))
			order++
		case "graphicFrame":
			rows := pptxTableRows(dec)
			if md := mdtable.FromRows(rows); md != "" {
				page.Fragments = append(page.Fragments, fragment.Table(order, md))
				order++
			}
		case "pic":
			relID, cx, cy := pptxPicture(dec)
			ref, ok := savePPTXImage(&zr.Reader, rels, relID, cx, cy, tempDir, slideIndex, &imageNum)
			if !ok {
				continue
			}
			page.Fragments = append(page.Fragments, fragment.ImagePlaceholder(order, ref))
			page.ImageRefs = append(page.ImageRefs, ref)
			order++
		}
	}

	if notes := pptxNotes(&zr.Reader, slideNum); notes != "" {
		page.Fragments = append(page.Fragments, fragment.Text(notesOrderKey, "**备注**: "+notes))
	}
	return page, nil
}

// pptxShape reads one <p:sp> element, returning its joined paragraph text
// and whether it is the slide title placeholder.
func pptxShape(dec *xml.Decoder) (string, bool) {
	var paragraphs []string
	var current []string
	isTitle := false
	inParagraph := false
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
			case "ph":
				typ := attr(t, "type")
				if typ == "title" || typ == "ctrTitle" {
					isTitle = true
				}
			case "p":
				inParagraph = true
				current = nil
			case "t":
				if inParagraph {
					current = append(current, readElementText(dec, &depth))
				} else {
					depth = consumeElement(dec, depth)
				}
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "p" && inParagraph {
				if text := strings.TrimSpace(strings.Join(current, "")); text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		}
	}
	return strings.Join(paragraphs, "\n"), isTitle
}

// consumeElement skips the current element's subtree.
func consumeElement(dec *xml.Decoder, depth int) int {
	inner := 1
	for inner > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch tok.(type) {
		case xml.StartElement:
			inner++
		case xml.EndElement:
			inner--
		}
	}
	return depth - 1
}

// pptxTableRows reads the <a:tbl> inside a graphic frame into a cell grid.
func pptxTableRows(dec *xml.Decoder) [][]string {
	var rows [][]string
	var row []string
	var cell []string
	inCell := false
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
			case "tr":
				row = nil
			case "tc":
				inCell = true
				cell = nil
			case "t":
				if inCell {
					cell = append(cell, readElementText(dec, &depth))
				} else {
					depth = consumeElement(dec, depth)
				}
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "tc":
				if inCell {
					row = append(row, strings.TrimSpace(strings.Join(cell, " ")))
					inCell = false
				}
			case "tr":
				rows = append(rows, row)
				row = nil
			}
		}
	}
	return rows
}

// pptxPicture reads one <p:pic> element, returning the blip relationship
// id and the shape extent in EMU.
func pptxPicture(dec *xml.Decoder) (string, int64, int64) {
	var relID string
	var cx, cy int64
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
			case "blip":
				if id := attr(t, "embed"); id != "" {
					relID = id
				} else if id := attr(t, "link"); id != "" {
					relID = id
				}
			case "ext":
				if v, err := strconv.ParseInt(attr(t, "cx"), 10, 64); err == nil && cx == 0 {
					cx = v
				}
				if v, err := strconv.ParseInt(attr(t, "cy"), 10, 64); err == nil && cy == 0 {
					cy = v
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return relID, cx, cy
}

// savePPTXImage applies the format, icon, and background rules and writes
// survivors as slide_{i}_image_{j}.{ext} under the temp dir.
func savePPTXImage(
	zr *zip.Reader,
	rels map[string]relationship,
	relID string,
	cx, cy int64,
	tempDir string,
	slideIndex int,
	imageNum *int,
) (string, bool) {
	if relID == "" {
		return "", false
	}
	rel, ok := rels[relID]
	if !ok || rel.Mode == "External" {
		return "", false
	}

	target := resolveRelTarget("ppt/slides", rel.Target)
	ext := strings.ToLower(path.Ext(target))
	if !allowedImageExts[ext] {
		slog.Debug("pptx image format skipped", "target", target)
		return "", false
	}

	data, err := readZipFile(zr, target)
	if err != nil {
		slog.Warn("pptx image part unreadable", "target", target, "error", err)
		return "", false
	}
	if imagefilter.IsIcon(data) {
		slog.Debug("pptx image skipped as icon", "target", target, "size", len(data))
		return "", false
	}

	width := emuToPx(cx)
	height := emuToPx(cy)
	if imagefilter.IsBackground(data, width, height) {
		slog.Debug("pptx image skipped as background",
			"target", target, "width", width, "height", height)
		return "", false
	}

	*imageNum++
	ref := filepath.Join(tempDir, fmt.Sprintf("slide_%d_image_%d%s", slideIndex, *imageNum, ext))
	if err := os.WriteFile(ref, data, 0o600); err != nil {
		slog.Warn("pptx image write failed", "ref", ref, "error", err)
		return "", false
	}
	return ref, true
}

// pptxNotes returns the trimmed speaker-notes text for a slide, or "".
func pptxNotes(zr *zip.Reader, slideNum int) string {
	body, err := readZipFile(zr, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slideNum))
	if err != nil {
		return ""
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var paragraphs []string
	var current []string
	inParagraph := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current = nil
			case "t":
				if inParagraph {
					depth := 1
					current = append(current, readElementText(dec, &depth))
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				if text := strings.TrimSpace(strings.Join(current, "")); text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		}
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n"))
}
