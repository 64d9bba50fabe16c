package converter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jlnkls/xls-anki-converter/internal/schema"
	"github.com/jlnkls/xls-anki-converter/internal/types"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize bounds a single export line. Rich-text fields can run long.
const maxLineSize = 4 << 20

// ParseExport reads a tab-separated flashcard export. The first s.MetaRows lines are
// directives, the rest are records padded to s.Fields. A leading UTF-8 BOM is dropped
// and blank lines are skipped.
func ParseExport(r io.Reader, s schema.Schema) (*types.Document, error) {
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	var lines [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, splitFields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, ErrEmptyExport
	}
	if len(lines) < s.MetaRows {
		return nil, fmt.Errorf("%w: %d lines, schema %s needs %d directive lines", ErrMissingDirectives, len(lines), s.Name, s.MetaRows)
	}

	doc := &types.Document{
		Directives: lines[:s.MetaRows],
		Records:    make([][]string, 0, len(lines)-s.MetaRows),
	}

	for i, line := range doc.Directives {
		if !isDirective(line) {
			return nil, fmt.Errorf("%w: line %d is %q", ErrMissingDirectives, i+1, strings.Join(line, "\t"))
		}
	}

	for i, line := range lines[s.MetaRows:] {
		// A directive past the header means the export has more metadata than the schema
		if isStrayDirective(line) {
			return nil, fmt.Errorf("%w: directive on line %d, schema %s has %d", ErrSchemaMismatch, s.MetaRows+i+1, s.Name, s.MetaRows)
		}
		rec, err := fitRecord(line, s.Fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.MetaRows+i+1, err)
		}
		doc.Records = append(doc.Records, rec)
	}

	return doc, nil
}

// ReadExportFile parses the export document at path
func ReadExportFile(path string, s schema.Schema) (*types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ParseExport(f, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteExport writes rows as tab-joined lines. Fields are written as-is, any quoting
// must already be applied.
func WriteExport(w io.Writer, rows [][]string) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if _, err := bw.WriteString(strings.Join(row, "\t")); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// splitFields splits a line on tabs and unquotes each field
func splitFields(line string) []string {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = unquote(f)
	}
	return fields
}

// unquote strips the quotes from a field that is quoted as a whole, with any inner
// quotes doubled. Anything else, such as a term that merely starts with a quote, is
// returned unchanged.
func unquote(field string) string {
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return field
	}
	inner := field[1 : len(field)-1]
	if strings.Count(inner, `""`)*2 != strings.Count(inner, `"`) {
		return field
	}
	return strings.ReplaceAll(inner, `""`, `"`)
}

func isDirective(line []string) bool {
	return len(line) > 0 && strings.HasPrefix(line[0], "#")
}

// isStrayDirective matches a lone #key:value line. Quoted identifiers starting with
// '#' always come with the rest of their record.
func isStrayDirective(line []string) bool {
	line = trimTrailing(line)
	return len(line) == 1 && strings.HasPrefix(line[0], "#") && strings.Contains(line[0], ":")
}

// fitRecord pads a record to n fields. Extra fields are only accepted when empty.
func fitRecord(fields []string, n int) ([]string, error) {
	if len(fields) > n {
		for _, extra := range fields[n:] {
			if extra != "" {
				return nil, fmt.Errorf("%w: %d fields, want %d", ErrSchemaMismatch, len(fields), n)
			}
		}
		fields = fields[:n]
	}
	rec := make([]string, n)
	copy(rec, fields)
	return rec, nil
}

// trimTrailing drops empty cells at the end of a row
func trimTrailing(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
