// Package mdtable renders 2-D cell arrays as strict GFM Markdown tables.
// Downstream LLMs consume the output, so column alignment is enforced:
// malformed rows are dropped rather than emitted ragged.
package mdtable

import "strings"

// cleanCell trims a cell and folds embedded newlines into <br> so a cell
// never spans table rows.
func cleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", "<br>"))
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// FromRows converts rows of cells into a Markdown table. The first row is
// the header and fixes the column count. Rows that are empty, ragged, or
// all-blank are skipped. Returns "" when the table carries no header.
func FromRows(rows [][]string) string {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ""
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = cleanCell(c)
	}
	if allBlank(header) {
		return ""
	}
	columns := len(header)

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, columns)
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	for _, row := range rows[1:] {
		if len(row) == 0 || len(row) != columns {
			continue
		}
		cells := make([]string, columns)
		for i, c := range row {
			cells[i] = cleanCell(c)
		}
		if allBlank(cells) {
			continue
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}
