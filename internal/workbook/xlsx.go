package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"
)

const printAreaName = "_xlnm.Print_Area"

// File is a worksheet inside a local .xlsx or .xlsm workbook.
type File struct {
	path  string
	sheet string
	f     *excelize.File
	log   *slog.Logger
}

// OpenFile opens the workbook at path. An empty sheet selects the active sheet.
func OpenFile(path, sheet string) (*File, error) {
	if path == "" {
		return nil, ErrMissingPath
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get sheet index: %w", err)
	}
	if idx == -1 {
		f.Close()
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, path)
	}

	return &File{
		path:  path,
		sheet: sheet,
		f:     f,
		log:   slog.Default().With("component", "workbook", "path", path, "sheet", sheet),
	}, nil
}

func (b *File) Name() string {
	return b.path
}

func (b *File) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := b.f.GetRows(b.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func (b *File) Write(ctx context.Context, rows [][]string, layout Layout) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	old, err := b.Rows(ctx)
	if err != nil {
		return err
	}

	changed := 0
	height := max(len(old), len(rows))
	for r := 0; r < height; r++ {
		var oldLen, newLen int
		if r < len(old) {
			oldLen = len(old[r])
		}
		if r < len(rows) {
			newLen = len(rows[r])
		}
		for c := 0; c < max(oldLen, newLen); c++ {
			was, now := cellAt(old, r, c), cellAt(rows, r, c)
			if was == now {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if now == "" {
				err = b.f.SetCellValue(b.sheet, cell, nil)
			} else {
				err = b.f.SetCellStr(b.sheet, cell, now)
			}
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
			changed++
		}
	}

	metaCols := width(rows[min(layout.MetaFirst-1, len(rows)):min(layout.MetaLast, len(rows))])
	if err := restyle(b.f, b.sheet, layout.MetaFirst, layout.MetaLast, metaCols, metaStyle); err != nil {
		return fmt.Errorf("failed to style metadata rows: %w", err)
	}
	if err := restyle(b.f, b.sheet, layout.DataStart, layout.DataStart+layout.DataRows-1, layout.Fields, dataStyle); err != nil {
		return fmt.Errorf("failed to style data rows: %w", err)
	}
	if err := b.setPrintArea(layout); err != nil {
		return fmt.Errorf("failed to update print area: %w", err)
	}

	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := atomic.WriteFile(b.path, buf); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	b.log.Debug("workbook saved", "cells_changed", changed, "last_row", layout.LastRow())
	return nil
}

func (b *File) Close() error {
	return b.f.Close()
}

// PrintArea returns the sheet's print area reference, or "" when none is defined
func (b *File) PrintArea() string {
	for _, dn := range b.f.GetDefinedName() {
		if dn.Name == printAreaName && dn.Scope == b.sheet {
			return dn.RefersTo
		}
	}
	return ""
}

// setPrintArea moves the print area's last row to the last data row, keeping its
// columns. Without a print area one covering A1 to the last field is created.
func (b *File) setPrintArea(layout Layout) error {
	if current := b.PrintArea(); current != "" {
		refersTo, ok := withLastRow(current, layout.LastRow())
		if !ok {
			b.log.Warn("print area not understood, leaving it alone", "refers_to", current)
			return nil
		}
		if refersTo == current {
			return nil
		}
		if err := b.f.DeleteDefinedName(&excelize.DefinedName{Name: printAreaName, Scope: b.sheet}); err != nil {
			return err
		}
		return b.f.SetDefinedName(&excelize.DefinedName{Name: printAreaName, RefersTo: refersTo, Scope: b.sheet})
	}

	end, err := excelize.CoordinatesToCellName(max(layout.Fields, 1), layout.LastRow(), true)
	if err != nil {
		return err
	}
	return b.f.SetDefinedName(&excelize.DefinedName{
		Name:     printAreaName,
		RefersTo: fmt.Sprintf("%s!$A$1:%s", quoteSheet(b.sheet), end),
		Scope:    b.sheet,
	})
}

// withLastRow rewrites the row of the final cell in every range of a reference like
// 'Sheet'!$A$1:$E$120,'Sheet'!$G$1:$H$120.
func withLastRow(ref string, row int) (string, bool) {
	ranges := splitRanges(ref)
	for i, r := range ranges {
		colon := strings.LastIndex(r, ":")
		if colon < 0 {
			return "", false
		}
		end := r[colon+1:]
		if bang := strings.LastIndex(end, "!"); bang >= 0 {
			end = end[bang+1:]
		}
		if _, _, err := excelize.SplitCellName(strings.ReplaceAll(end, "$", "")); err != nil {
			return "", false
		}
		col := strings.TrimRight(end, "0123456789")
		ranges[i] = r[:len(r)-len(end)] + col + strconv.Itoa(row)
	}
	return strings.Join(ranges, ","), true
}

// splitRanges splits a reference on the commas outside quoted sheet names
func splitRanges(ref string) []string {
	var (
		ranges []string
		quoted bool
		start  int
	)
	for i, c := range ref {
		switch {
		case c == '\'':
			quoted = !quoted
		case c == ',' && !quoted:
			ranges = append(ranges, ref[start:i])
			start = i + 1
		}
	}
	return append(ranges, ref[start:])
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
