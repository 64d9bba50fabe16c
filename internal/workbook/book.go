// Package workbook reads and writes the worksheet that mirrors a flashcard export.
package workbook

import "context"

// Book is a single worksheet addressed as a grid of text cells, rows[0] being row 1.
type Book interface {
	// Rows returns the current cell values with trailing empty cells and rows trimmed
	Rows(ctx context.Context) ([][]string, error)

	// Write replaces the worksheet contents with rows. Cells that keep their value are
	// not touched, so formatting outside the rewritten regions survives.
	Write(ctx context.Context, rows [][]string, layout Layout) error

	// Name identifies the book in logs and diffs
	Name() string

	Close() error
}

// Layout tells a backend where the rewritten regions are, for styling and print area.
type Layout struct {
	MetaFirst int
	MetaLast  int
	HeaderRow int
	DataStart int
	DataRows  int
	Fields    int
}

// LastRow is the last row the printed area should cover
func (l Layout) LastRow() int {
	if l.DataRows == 0 {
		return l.HeaderRow
	}
	return l.DataStart + l.DataRows - 1
}

func cellAt(rows [][]string, r, c int) string {
	if r < len(rows) && c < len(rows[r]) {
		return rows[r][c]
	}
	return ""
}

func width(rows [][]string) int {
	w := 0
	for _, row := range rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}
