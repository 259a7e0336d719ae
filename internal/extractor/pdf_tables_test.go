package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(y float64, words ...textWord) textRow {
	return textRow{y: y, words: words}
}

func word(x, w float64, s string) textWord {
	return textWord{x: x, w: w, s: s}
}

func TestSplitRowCells(t *testing.T) {
	// Close words join into one cell, a wide gap starts the next.
	r := row(700,
		word(72, 20, "Hello"),
		word(95, 22, "world"), // gap 3pt from previous right edge
		word(200, 15, "42"),   // gap 83pt
	)
	cells := splitRowCells(r)
	require.Len(t, cells, 2)
	assert.Equal(t, "Hello world", cells[0].s)
	assert.Equal(t, "42", cells[1].s)

	assert.Empty(t, splitRowCells(row(700)))
}

func TestDetectTablesAlignedColumns(t *testing.T) {
	rows := []textRow{
		row(720, word(72, 30, "Heading")),
		row(700, word(72, 30, "Name"), word(200, 20, "Age")),
		row(680, word(72, 30, "Alice"), word(201, 15, "30")),
		row(660, word(72, 30, "Bob"), word(199, 15, "41")),
		row(640, word(72, 40, "Trailing paragraph")),
	}

	tables := detectTables(rows)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].cells, 3)
	assert.Equal(t, []string{"Name", "Age"}, tables[0].cells[0])
	assert.Equal(t, []string{"Bob", "41"}, tables[0].cells[2])
	assert.Equal(t, 660.0, tables[0].minY)
	assert.Equal(t, 700.0, tables[0].maxY)

	text := pageTextOutsideTables(rows, tables)
	assert.Equal(t, "Heading\nTrailing paragraph", text)
}

func TestDetectTablesGapFallback(t *testing.T) {
	// Cell starts drift beyond the alignment tolerance, so only the
	// gap-based pass can claim these rows.
	rows := []textRow{
		row(700, word(72, 30, "Name"), word(200, 20, "Age")),
		row(680, word(85, 30, "Alice"), word(215, 15, "30")),
	}

	tables := detectTables(rows)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Alice", "30"}, tables[0].cells[1])
}

func TestDetectTablesIgnoresProse(t *testing.T) {
	// Single multi-cell row: below the minimum row count.
	rows := []textRow{
		row(700, word(72, 30, "Left"), word(200, 20, "Right")),
		row(680, word(72, 200, "An ordinary paragraph line")),
		row(660, word(72, 200, "Another paragraph line")),
	}

	tables := detectTables(rows)
	assert.Empty(t, tables)
	assert.Equal(t,
		"Left Right\nAn ordinary paragraph line\nAnother paragraph line",
		pageTextOutsideTables(rows, tables))
}

func TestRowInTables(t *testing.T) {
	tables := []detectedTable{{minY: 660, maxY: 700}}
	assert.True(t, rowInTables(row(680), tables))
	assert.True(t, rowInTables(row(700), tables))
	assert.False(t, rowInTables(row(720), tables))
	assert.False(t, rowInTables(row(640), tables))
}
