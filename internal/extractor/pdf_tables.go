package extractor

import "math"

// Table detection works on positioned text rows only. Two strategies run
// in order: strict column alignment first, then a looser gap-based scan
// over whatever the strict pass left behind.
const (
	// cellGapPt is the horizontal whitespace that separates two cells.
	cellGapPt = 12.0
	// columnAlignTolPt is how far cell starts may drift between rows
	// while still counting as the same column.
	columnAlignTolPt = 5.0
	// minTableRows and minTableCols gate what counts as a table at all.
	minTableRows = 2
	minTableCols = 2
)

// textWord is one positioned word on a page.
type textWord struct {
	x float64
	w float64
	s string
}

// textRow is one baseline-grouped line of words, X-sorted.
type textRow struct {
	y     float64
	words []textWord
}

// detectedTable is a block of consecutive rows recognized as tabular,
// with its vertical extent so the text pass can exclude it.
type detectedTable struct {
	cells [][]string
	minY  float64
	maxY  float64
}

// rowCell is one gap-delimited cell within a row.
type rowCell struct {
	x float64
	s string
}

// detectTables finds tabular regions in the page rows. Rows claimed by
// the aligned-column pass are not revisited by the gap-based pass.
func detectTables(rows []textRow) []detectedTable {
	cells := make([][]rowCell, len(rows))
	for i, r := range rows {
		cells[i] = splitRowCells(r)
	}

	claimed := make([]bool, len(rows))
	tables := detectAlignedTables(rows, cells, claimed)
	tables = append(tables, detectGapTables(rows, cells, claimed)...)
	return tables
}

// splitRowCells merges adjacent words into cells, breaking wherever the
// horizontal gap between a word and the previous word's right edge
// exceeds the cell threshold.
func splitRowCells(r textRow) []rowCell {
	var cells []rowCell
	var curStart float64
	var curEnd float64
	var curText string

	flush := func() {
		if curText != "" {
			cells = append(cells, rowCell{x: curStart, s: curText})
		}
	}
	for i, w := range r.words {
		if i == 0 {
			curStart, curEnd, curText = w.x, w.x+w.w, w.s
			continue
		}
		if w.x-curEnd > cellGapPt {
			flush()
			curStart, curText = w.x, w.s
		} else {
			curText += " " + w.s
		}
		curEnd = w.x + w.w
	}
	flush()
	return cells
}

// detectAlignedTables groups runs of consecutive rows that share the same
// cell count and whose cell start positions line up column by column.
func detectAlignedTables(rows []textRow, cells [][]rowCell, claimed []bool) []detectedTable {
	var tables []detectedTable
	i := 0
	for i < len(rows) {
		if claimed[i] || len(cells[i]) < minTableCols {
			i++
			continue
		}
		j := i + 1
		for j < len(rows) && !claimed[j] && cellsAligned(cells[i], cells[j]) {
			j++
		}
		if j-i >= minTableRows {
			tables = append(tables, buildTable(rows, cells, claimed, i, j))
		}
		if j > i+1 {
			i = j
		} else {
			i++
		}
	}
	return tables
}

// detectGapTables is the fallback: consecutive unclaimed rows that each
// split into two or more cells, with no alignment requirement.
func detectGapTables(rows []textRow, cells [][]rowCell, claimed []bool) []detectedTable {
	var tables []detectedTable
	i := 0
	for i < len(rows) {
		if claimed[i] || len(cells[i]) < minTableCols {
			i++
			continue
		}
		j := i + 1
		for j < len(rows) && !claimed[j] && len(cells[j]) >= minTableCols {
			j++
		}
		if j-i >= minTableRows {
			tables = append(tables, buildTable(rows, cells, claimed, i, j))
		}
		i = j
	}
	return tables
}

// cellsAligned reports whether two rows have the same column structure.
func cellsAligned(a, b []rowCell) bool {
	if len(a) != len(b) || len(a) < minTableCols {
		return false
	}
	for i := range a {
		if math.Abs(a[i].x-b[i].x) > columnAlignTolPt {
			return false
		}
	}
	return true
}

// buildTable marks rows [from, to) as claimed and materializes the cell
// grid plus the vertical extent of the block.
func buildTable(rows []textRow, cells [][]rowCell, claimed []bool, from, to int) detectedTable {
	t := detectedTable{
		minY: math.Inf(1),
		maxY: math.Inf(-1),
	}
	for i := from; i < to; i++ {
		claimed[i] = true
		row := make([]string, len(cells[i]))
		for k, c := range cells[i] {
			row[k] = c.s
		}
		t.cells = append(t.cells, row)
		t.minY = math.Min(t.minY, rows[i].y)
		t.maxY = math.Max(t.maxY, rows[i].y)
	}
	return t
}
