// Package formatter renders aligned text tables for terminal output.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps the separator row at least "---".
const minColumnWidth = 3

// FormatTable renders header and rows as a pipe table. Columns are padded to
// display width, so CJK titles line up. Short rows are padded with empty
// cells.
func FormatTable(header []string, rows [][]string) string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return ""
	}

	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = minColumnWidth
	}

	measure := func(row []string) {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	measure(header)
	for _, row := range rows {
		measure(row)
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, formatRow(header, colWidths))

	separator := make([]string, colCount)
	for i, width := range colWidths {
		separator[i] = strings.Repeat("-", width)
	}

	lines = append(lines, formatRow(separator, colWidths))

	for _, row := range rows {
		lines = append(lines, formatRow(row, colWidths))
	}

	return strings.Join(lines, "\n") + "\n"
}

func formatRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
