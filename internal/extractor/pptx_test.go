package extractor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docparse-io/docparse/internal/fragment"
	"github.com/docparse-io/docparse/internal/testutil"
)

const pptxHeader = `<p:sld` +
	` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`

const notesHeader = `<p:notes` +
	` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`

func buildTestPPTX(t *testing.T) []byte {
	t.Helper()

	slide1 := []byte(pptxHeader + `<p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Quarterly Review</a:t></a:r></a:p></p:txBody></p:sp>` +
		`<p:sp><p:txBody>` +
		`<a:p><a:r><a:t>First point</a:t></a:r></a:p>` +
		`<a:p><a:r><a:t>Second point</a:t></a:r></a:p>` +
		`</p:txBody></p:sp>` +
		`<p:graphicFrame><a:graphic><a:graphicData><a:tbl>` +
		`<a:tr><a:tc><a:txBody><a:p><a:r><a:t>Name</a:t></a:r></a:p></a:txBody></a:tc>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>Value</a:t></a:r></a:p></a:txBody></a:tc></a:tr>` +
		`<a:tr><a:tc><a:txBody><a:p><a:r><a:t>Revenue</a:t></a:r></a:p></a:txBody></a:tc>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>42</a:t></a:r></a:p></a:txBody></a:tc></a:tr>` +
		`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
		`<p:pic><p:blipFill><a:blip r:embed="rId1"/></p:blipFill>` +
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="1828800" cy="1371600"/></a:xfrm></p:spPr></p:pic>` +
		`</p:spTree></p:cSld></p:sld>`)

	notes1 := []byte(notesHeader + `<p:cSld><p:spTree>` +
		`<p:sp><p:txBody><a:p><a:r><a:t>Remember the demo</a:t></a:r></a:p></p:txBody></p:sp>` +
		`</p:spTree></p:cSld></p:notes>`)

	slide2 := []byte(pptxHeader + `<p:cSld><p:spTree>` +
		`<p:sp><p:txBody><a:p><a:r><a:t>Closing remarks</a:t></a:r></a:p></p:txBody></p:sp>` +
		`</p:spTree></p:cSld></p:sld>`)

	slides := []testutil.PPTXSlide{
		{
			XML: slide1,
			Rels: []testutil.DocxRelationship{
				{ID: "rId1", Type: "image", Target: "../media/image1.png"},
			},
			Notes: notes1,
		},
		{XML: slide2},
	}
	media := map[string][]byte{
		"ppt/media/image1.png": testutil.NoisePNG(t, 200, 200, 6*1024),
	}
	return testutil.BuildPPTX(t, slides, media)
}

func TestPPTXSlideCount(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "deck.pptx", buildTestPPTX(t))

	n, err := PPTXSlideCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = PPTXSlideCount(filepath.Join(dir, "missing.pptx"))
	assert.Error(t, err)
}

func TestExtractPPTXSlide(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "deck.pptx", buildTestPPTX(t))
	tempDir := t.TempDir()

	page, err := ExtractPPTXSlide(path, 0, tempDir)
	require.NoError(t, err)
	require.Len(t, page.Fragments, 5)

	title := page.Fragments[0]
	assert.Equal(t, fragment.KindText, title.Kind)
	assert.Equal(t, "### Quarterly Review", title.Content)
	assert.Equal(t, 0, title.Order)

	body := page.Fragments[1]
	assert.Equal(t, "First point\nSecond point", body.Content)

	table := page.Fragments[2]
	assert.Equal(t, fragment.KindTable, table.Kind)
	assert.Contains(t, table.Content, "| Name | Value |")
	assert.Contains(t, table.Content, "| Revenue | 42 |")

	img := page.Fragments[3]
	assert.Equal(t, fragment.KindImage, img.Kind)
	assert.Equal(t, filepath.Join(tempDir, "slide_0_image_1.png"), img.ImageRef)
	assert.FileExists(t, img.ImageRef)

	notes := page.Fragments[4]
	assert.Equal(t, "**备注**: Remember the demo", notes.Content)
	assert.Equal(t, notesOrderKey, notes.Order)

	require.Len(t, page.ImageRefs, 1)
}

func TestExtractPPTXSlideWithoutExtras(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "deck.pptx", buildTestPPTX(t))

	page, err := ExtractPPTXSlide(path, 1, t.TempDir())
	require.NoError(t, err)
	require.Len(t, page.Fragments, 1)
	assert.Equal(t, "Closing remarks", page.Fragments[0].Content)
	assert.Empty(t, page.ImageRefs)
}

func TestExtractPPTXSlideOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "deck.pptx", buildTestPPTX(t))

	_, err := ExtractPPTXSlide(path, 5, t.TempDir())
	assert.Error(t, err)
}
