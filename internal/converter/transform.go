package converter

import (
	"fmt"

	"github.com/jlnkls/xls-anki-converter/internal/guid"
	"github.com/jlnkls/xls-anki-converter/internal/schema"
	"github.com/jlnkls/xls-anki-converter/internal/types"
)

// Import lays an export document out over a copy of the worksheet grid. Directives go
// to the metadata rows, the old data region is dropped and the records are written
// from s.DataStartRow in workbook column order. Every cell is formula-guarded at the end.
// grid holds worksheet rows with grid[0] as row 1.
func Import(doc *types.Document, grid [][]string, s schema.Schema, progressChan chan<- float64) ([][]string, *types.ConversionResult) {
	metaFirst, _ := s.MetaRange()
	dataStart := s.DataStartRow - 1

	out := make([][]string, dataStart, dataStart+len(doc.Records))
	for i := 0; i < dataStart && i < len(grid); i++ {
		out[i] = append([]string(nil), grid[i]...)
	}

	for i, row := range RewriteDirectives(doc.Directives) {
		if i >= s.MetaRows {
			break
		}
		out[metaFirst-1+i] = row
	}

	cleared := 0
	for i := dataStart; i < len(grid); i++ {
		if len(trimTrailing(grid[i])) > 0 {
			cleared++
		}
	}

	total := len(doc.Records)
	for i, rec := range doc.Records {
		reportProgress(progressChan, i, total)
		out = append(out, Remap(rec))
	}

	GuardGrid(out)

	return out, &types.ConversionResult{
		Direction:     types.DirectionImport,
		MetaRows:      len(doc.Directives),
		RowsProcessed: total,
		RowsCleared:   cleared,
	}
}

// Export turns a worksheet grid back into export rows: the metadata rows followed by
// the data rows in export column order. Missing identifiers are generated from src and
// identifiers containing '#' are quoted. Fully blank data rows are skipped.
func Export(grid [][]string, s schema.Schema, src guid.Source, progressChan chan<- float64) ([][]string, *types.ConversionResult, error) {
	metaFirst, metaLast := s.MetaRange()

	out := make([][]string, 0, len(grid))
	for row := metaFirst; row <= metaLast; row++ {
		var cells []string
		if row-1 < len(grid) {
			cells = trimTrailing(grid[row-1])
		}
		if !isDirective(cells) {
			return nil, nil, fmt.Errorf("%w: row %d", ErrMissingDirectives, row)
		}
		out = append(out, append([]string(nil), cells...))
	}

	var records [][]string
	for i := s.DataStartRow - 1; i < len(grid); i++ {
		if len(trimTrailing(grid[i])) == 0 {
			continue
		}
		rec := make([]string, s.Fields)
		copy(rec, grid[i])
		records = append(records, Remap(rec))
	}

	generated := guid.NewTracker().Fill(records, schema.FieldGUID, src)

	total := len(records)
	for i, rec := range records {
		reportProgress(progressChan, i, total)
		rec[schema.FieldGUID] = QuoteReserved(rec[schema.FieldGUID])
		out = append(out, rec)
	}

	UnescapeGrid(out)

	return out, &types.ConversionResult{
		Direction:     types.DirectionExport,
		MetaRows:      metaLast - metaFirst + 1,
		RowsProcessed: total,
		IDsGenerated:  generated,
	}, nil
}

// reportProgress sends without blocking; a slow reader just misses updates.
func reportProgress(progressChan chan<- float64, current, total int) {
	if progressChan == nil || total == 0 {
		return
	}
	select {
	case progressChan <- float64(current+1) / float64(total):
	default:
	}
}
