package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// BuildZip assembles an in-memory zip from a name→content map.
func BuildZip(t *testing.T, parts map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// DocxRelationship describes one entry of a part's .rels file.
type DocxRelationship struct {
	ID     string
	Type   string
	Target string
	Mode   string // "External" for linked images
}

// RelsXML renders a relationships part.
func RelsXML(rels []DocxRelationship) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		buf.WriteString(fmt.Sprintf(`<Relationship Id=%q Type=%q Target=%q`, r.ID, r.Type, r.Target))
		if r.Mode != "" {
			buf.WriteString(fmt.Sprintf(` TargetMode=%q`, r.Mode))
		}
		buf.WriteString(`/>`)
	}
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

// BuildDOCX assembles a minimal DOCX archive around the given document.xml
// body, relationships, and media files (keyed by full archive path, e.g.
// "word/media/image1.png").
func BuildDOCX(t *testing.T, documentXML []byte, rels []DocxRelationship, media map[string][]byte) []byte {
	t.Helper()

	parts := map[string][]byte{
		"[Content_Types].xml":          docxContentTypes,
		"word/document.xml":            documentXML,
		"word/_rels/document.xml.rels": RelsXML(rels),
	}
	for name, content := range media {
		parts[name] = content
	}
	return BuildZip(t, parts)
}

// PPTXSlide describes one slide of a synthetic PPTX archive.
type PPTXSlide struct {
	XML   []byte
	Rels  []DocxRelationship
	Notes []byte // notesSlide XML, optional
}

// BuildPPTX assembles a minimal PPTX archive from slides and media files.
// Slide N is written as ppt/slides/slideN.xml with its .rels; notes go to
// ppt/notesSlides/notesSlideN.xml wired through the slide's rels.
func BuildPPTX(t *testing.T, slides []PPTXSlide, media map[string][]byte) []byte {
	t.Helper()

	parts := map[string][]byte{
		"[Content_Types].xml": pptxContentTypes,
	}
	for i, s := range slides {
		n := i + 1
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = s.XML
		rels := s.Rels
		if len(s.Notes) > 0 {
			parts[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = s.Notes
			rels = append(rels, DocxRelationship{
				ID:     fmt.Sprintf("rIdNotes%d", n),
				Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide",
				Target: fmt.Sprintf("../notesSlides/notesSlide%d.xml", n),
			})
		}
		if len(rels) > 0 {
			parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = RelsXML(rels)
		}
	}
	for name, content := range media {
		parts[name] = content
	}
	return BuildZip(t, parts)
}

var docxContentTypes = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`)

var pptxContentTypes = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`</Types>`)
