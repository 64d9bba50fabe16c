package converter

import (
	"strconv"
	"strings"

	"github.com/jlnkls/xls-anki-converter/internal/schema"
)

const (
	tagsMarker     = "#tags column:"
	notetypeMarker = "#notetype column:"
)

// RewriteDirectives points the tags and notetype column directives at the columns
// the workbook layout fixes for them. All other fields are copied verbatim.
func RewriteDirectives(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, field := range row {
			out[i][j] = rewriteDirective(field)
		}
	}
	return out
}

func rewriteDirective(field string) string {
	if idx := strings.Index(field, tagsMarker); idx >= 0 {
		head := field[:idx+len(tagsMarker)]
		// A non-numeric tags column is left as the exporter wrote it
		if isNumeral(field[len(head):]) {
			return head + strconv.Itoa(schema.TagsColumn)
		}
		return field
	}
	if idx := strings.Index(field, notetypeMarker); idx >= 0 {
		return field[:idx+len(notetypeMarker)] + strconv.Itoa(schema.NotetypeColumn)
	}
	return field
}

func isNumeral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
