package extractor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// emuPerInch and pxPerInch convert OOXML shape dimensions to pixels.
const (
	emuPerInch = 914400
	pxPerInch  = 96
)

// emuToPx converts English Metric Units to pixels at 96 dpi.
func emuToPx(emu int64) int {
	return int(emu * pxPerInch / emuPerInch)
}

// allowedImageExts lists the raster formats handed to OCR; vector and
// exotic formats are skipped without error.
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
}

// readZipFile returns the contents of one archive entry.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

// zipHasFile reports whether the archive contains the named entry.
func zipHasFile(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// relationship is one entry of an OOXML .rels part.
type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	Mode   string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

// parseRelationships reads a .rels part into an id-keyed map. A missing
// part yields an empty map, not an error: documents without images carry
// no media relationships.
func parseRelationships(zr *zip.Reader, relsPath string) (map[string]relationship, error) {
	out := make(map[string]relationship)
	data, err := readZipFile(zr, relsPath)
	if err != nil {
		return out, nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPath, err)
	}
	for _, r := range rels.Rels {
		out[r.ID] = r
	}
	return out, nil
}

// resolveRelTarget turns a relationship target relative to the part's
// directory into a full archive path.
func resolveRelTarget(partDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(partDir, target))
}

// attr returns the named attribute's value, matching the local name only
// so namespace prefixes do not matter.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// readElementText reads character data until the matching end element,
// tracking nesting depth via the caller's counter.
func readElementText(dec *xml.Decoder, depth *int) string {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			*depth++
		case xml.EndElement:
			*depth--
			return sb.String()
		}
	}
	return sb.String()
}
