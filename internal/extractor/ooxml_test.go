package extractor

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docparse-io/docparse/internal/testutil"
)

func TestEmuToPx(t *testing.T) {
	assert.Equal(t, 0, emuToPx(0))
	assert.Equal(t, 96, emuToPx(914400))   // one inch
	assert.Equal(t, 192, emuToPx(1828800)) // two inches
}

func TestResolveRelTarget(t *testing.T) {
	assert.Equal(t, "word/media/image1.png", resolveRelTarget("word", "media/image1.png"))
	assert.Equal(t, "ppt/media/image1.png", resolveRelTarget("ppt/slides", "../media/image1.png"))
	assert.Equal(t, "word/media/a.png", resolveRelTarget("word", "/word/media/a.png"))
}

func TestParseRelationships(t *testing.T) {
	data := testutil.BuildZip(t, map[string][]byte{
		"word/_rels/document.xml.rels": testutil.RelsXML([]testutil.DocxRelationship{
			{ID: "rId1", Type: "image", Target: "media/image1.png"},
			{ID: "rId2", Type: "image", Target: "http://example.com/x.png", Mode: "External"},
		}),
	})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	rels, err := parseRelationships(zr, "word/_rels/document.xml.rels")
	require.NoError(t, err)
	assert.Len(t, rels, 2)
	assert.Equal(t, "media/image1.png", rels["rId1"].Target)
	assert.Equal(t, "External", rels["rId2"].Mode)

	// A missing rels part is not an error: image-free documents have none.
	rels, err = parseRelationships(zr, "ppt/slides/_rels/slide1.xml.rels")
	require.NoError(t, err)
	assert.Empty(t, rels)

	bad := testutil.BuildZip(t, map[string][]byte{
		"word/_rels/document.xml.rels": []byte("not xml at all"),
	})
	zrBad, err := zip.NewReader(bytes.NewReader(bad), int64(len(bad)))
	require.NoError(t, err)
	_, err = parseRelationships(zrBad, "word/_rels/document.xml.rels")
	assert.Error(t, err)
}
