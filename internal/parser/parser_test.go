package parser

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/ocr"
	"github.com/docparse-io/docparse/internal/pagepool"
	"github.com/docparse-io/docparse/internal/testutil"
)

type stubEngine struct {
	text string
	err  error
}

func (s *stubEngine) Recognize([]byte) (string, error) { return s.text, s.err }
func (s *stubEngine) Close() error                     { return nil }

func newTestParser(t *testing.T, engine ocr.Engine) *Parser {
	t.Helper()

	pages := pagepool.New(2)
	t.Cleanup(pages.Shutdown)

	var ocrPool *ocr.Pool
	if engine != nil {
		var err error
		ocrPool, err = ocr.NewPool(2, func() (ocr.Engine, error) { return engine, nil })
		require.NoError(t, err)
		t.Cleanup(ocrPool.Shutdown)
	}
	return New(pages, ocrPool, t.TempDir())
}

func TestParseValidation(t *testing.T) {
	p := newTestParser(t, nil)
	ctx := context.Background()

	_, err := p.Parse(ctx, "doc.md", nil, DefaultOptions())
	assert.True(t, IsValidationError(err))

	_, err = p.Parse(ctx, "", []byte("x"), DefaultOptions())
	assert.True(t, IsValidationError(err))

	_, err = p.Parse(ctx, "archive.xlsx", []byte("x"), DefaultOptions())
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), ".xlsx")
}

func TestSupportedExtension(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.md", "c.markdown", "d.docx", "e.doc", "f.pptx", "G.PDF"} {
		assert.True(t, SupportedExtension(name), name)
	}
	for _, name := range []string{"a.xlsx", "b.txt", "noext"} {
		assert.False(t, SupportedExtension(name), name)
	}
}

func TestParseMarkdown(t *testing.T) {
	p := newTestParser(t, nil)

	res, err := p.Parse(context.Background(), "notes.md", []byte("# Title\n\nbody"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", res.Content)
	assert.Equal(t, 0, res.Metadata.PageCount)
	assert.Equal(t, 0, res.Metadata.ImageCount)
	assert.Equal(t, 0, res.Metadata.TableCount)
	assert.Equal(t, 0, res.Metadata.CaptionCount)
}

func TestParseDOCXWithTable(t *testing.T) {
	doc := []byte(docxBody(
		`<w:p><w:r><w:t>Intro.</w:t></w:r></w:p>` +
			`<w:tbl>` +
			`<w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc>` +
			`<w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr>` +
			`<w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>` +
			`<w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc></w:tr>` +
			`</w:tbl>`))
	data := testutil.BuildDOCX(t, doc, nil, nil)

	p := newTestParser(t, nil)
	res, err := p.Parse(context.Background(), "report.docx", data, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Intro.\n\n| A | B |\n| --- | --- |\n| 1 | 2 |\n", res.Content)
	assert.Equal(t, 0, res.Metadata.PageCount)
	assert.Equal(t, 1, res.Metadata.TableCount)
	assert.Equal(t, 0, res.Metadata.ImageCount)
	assert.Equal(t, 0, res.Metadata.OCRCount)
}

func TestParsePPTXWithOCR(t *testing.T) {
	data := pptxWithPicture(t)

	p := newTestParser(t, &stubEngine{text: "STOP"})
	res, err := p.Parse(context.Background(), "deck.pptx", data, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, res.Content, "## Slide 1\n\n### Cover")
	// The narrative pass rewrites the raw OCR placeholder header.
	assert.Contains(t, res.Content, "[图片 1 内容]：\nSTOP")
	assert.Equal(t, 1, res.Metadata.PageCount)
	assert.Equal(t, 1, res.Metadata.ImageCount)
	assert.Equal(t, 1, res.Metadata.OCRCount)
}

func TestParsePPTXOCRFailureIsolated(t *testing.T) {
	data := pptxWithPicture(t)

	p := newTestParser(t, &stubEngine{err: errors.New("model exploded")})
	res, err := p.Parse(context.Background(), "deck.pptx", data, DefaultOptions())
	require.NoError(t, err)

	assert.NotContains(t, res.Content, "图片")
	assert.Equal(t, 1, res.Metadata.ImageCount)
	assert.Equal(t, 0, res.Metadata.OCRCount)
}

func TestParsePPTXOCRDisabled(t *testing.T) {
	data := pptxWithPicture(t)

	p := newTestParser(t, &stubEngine{text: "never called"})
	opts := DefaultOptions()
	opts.EnableOCR = false

	res, err := p.Parse(context.Background(), "deck.pptx", data, opts)
	require.NoError(t, err)
	assert.NotContains(t, res.Content, "never called")
	assert.Equal(t, 1, res.Metadata.ImageCount)
	assert.Equal(t, 0, res.Metadata.OCRCount)
}

func TestParseCorruptDocumentIsFatal(t *testing.T) {
	p := newTestParser(t, nil)

	_, err := p.Parse(context.Background(), "broken.pdf", []byte("not a pdf"), DefaultOptions())
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestPanickingPageExtractionIsContained(t *testing.T) {
	p := newTestParser(t, nil)

	pages := p.extractPages(context.Background(), 3, func(i int) (fragment.PageResult, error) {
		if i == 1 {
			panic("malformed content stream")
		}
		return fragment.PageResult{PageIndex: i}, nil
	})

	require.Len(t, pages, 2)
	fragment.SortPages(pages)
	assert.Equal(t, 0, pages[0].PageIndex)
	assert.Equal(t, 2, pages[1].PageIndex)
}

func TestParseRemovesTempDir(t *testing.T) {
	tmpRoot := t.TempDir()
	pagePool := pagepool.New(2)
	t.Cleanup(pagePool.Shutdown)
	p := New(pagePool, nil, tmpRoot)

	doc := []byte(docxBody(`<w:p><w:r><w:t>Hello</w:t></w:r></w:p>`))
	_, err := p.Parse(context.Background(), "report.docx", testutil.BuildDOCX(t, doc, nil, nil), DefaultOptions())
	require.NoError(t, err)

	// The fatal path must clean up too.
	_, err = p.Parse(context.Background(), "broken.pdf", []byte("not a pdf"), DefaultOptions())
	require.Error(t, err)

	entries, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssemblePDFKeepsEmptyPageSlots(t *testing.T) {
	pages := []fragment.PageResult{
		{PageIndex: 0, Fragments: []fragment.Fragment{fragment.Text(0, "A")}},
		{PageIndex: 1},
		{PageIndex: 2, Fragments: []fragment.Fragment{fragment.Text(0, "B")}},
	}

	got := assemble("pdf", pages, nil)
	assert.Equal(t, "A\n\n--- Page Break ---\n\n\n\n--- Page Break ---\n\nB", got)

	// Empty slides still vanish from deck output.
	got = assemble("pptx", pages, nil)
	assert.Equal(t, "## Slide 1\n\nA\n\n## Slide 3\n\nB", got)
}

func docxBody(inner string) string {
	return `<w:document` +
		` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body>` + inner + `</w:body></w:document>`
}

func pptxWithPicture(t *testing.T) []byte {
	t.Helper()

	slide := []byte(`<p:sld` +
		` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Cover</a:t></a:r></a:p></p:txBody></p:sp>` +
		`<p:pic><p:blipFill><a:blip r:embed="rId1"/></p:blipFill>` +
		`<p:spPr><a:xfrm><a:ext cx="914400" cy="914400"/></a:xfrm></p:spPr></p:pic>` +
		`</p:spTree></p:cSld></p:sld>`)

	slides := []testutil.PPTXSlide{{
		XML: slide,
		Rels: []testutil.DocxRelationship{
			{ID: "rId1", Type: "image", Target: "../media/image1.png"},
		},
	}}
	media := map[string][]byte{
		"ppt/media/image1.png": testutil.NoisePNG(t, 200, 200, 6*1024),
	}
	return testutil.BuildPPTX(t, slides, media)
}
