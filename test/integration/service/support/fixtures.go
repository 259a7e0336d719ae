package support

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// buildZip assembles an in-memory archive from a name→content map.
func buildZip(parts map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// noisePNG produces a PNG whose pixels vary so the encoding stays above
// the icon-size threshold.
func noisePNG(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	seed := uint32(2463534242)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.Set(x, y, color.RGBA{uint8(seed), uint8(seed >> 8), uint8(seed >> 16), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildDocxWithTable builds a minimal DOCX: one paragraph followed by a
// 2x2 table with header A|B and row 1|2.
func buildDocxWithTable(paragraph string) ([]byte, error) {
	doc := `<w:document` +
		` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` +
		`<w:p><w:r><w:t>` + paragraph + `</w:t></w:r></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		`</w:body></w:document>`

	return buildZip(map[string][]byte{
		"[Content_Types].xml": contentTypesXML,
		"word/document.xml":   []byte(doc),
	})
}

// buildPptxWithPicture builds a single-slide PPTX carrying a title and
// one embedded picture large enough to survive the filters.
func buildPptxWithPicture() ([]byte, error) {
	img, err := noisePNG(200, 200)
	if err != nil {
		return nil, err
	}

	slide := `<p:sld` +
		` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Cover</a:t></a:r></a:p></p:txBody></p:sp>` +
		`<p:pic><p:blipFill><a:blip r:embed="rId1"/></p:blipFill>` +
		`<p:spPr><a:xfrm><a:ext cx="914400" cy="914400"/></a:xfrm></p:spPr></p:pic>` +
		`</p:spTree></p:cSld></p:sld>`

	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="image" Target="../media/image1.png"/>` +
		`</Relationships>`

	return buildZip(map[string][]byte{
		"[Content_Types].xml":              contentTypesXML,
		"ppt/slides/slide1.xml":            []byte(slide),
		"ppt/slides/_rels/slide1.xml.rels": []byte(rels),
		"ppt/media/image1.png":             img,
	})
}

var contentTypesXML = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`</Types>`)
