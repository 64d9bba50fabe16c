// Package converter moves flashcards between a tab-separated export file and the
// worksheet that mirrors it.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jlnkls/xls-anki-converter/internal/guid"
	"github.com/jlnkls/xls-anki-converter/internal/profile"
	"github.com/jlnkls/xls-anki-converter/internal/schema"
	"github.com/jlnkls/xls-anki-converter/internal/types"
	"github.com/jlnkls/xls-anki-converter/internal/workbook"

	"github.com/natefinch/atomic"
	diffpatch "github.com/sourcegraph/go-diff-patch"
)

// Options controls a file conversion
type Options struct {
	// DryRun computes the change and returns it as a diff without writing
	DryRun bool

	// Progress receives completion fractions. Sends never block.
	Progress chan<- float64

	// IDs overrides the identifier source for exports; defaults to a Generator with
	// the profile's prefix.
	IDs guid.Source

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Run opens the profile's workbook and converts in the given direction
func Run(ctx context.Context, dir types.Direction, p profile.Profile, opts Options) (*types.ConversionResult, error) {
	book, err := p.OpenBook(ctx)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	switch dir {
	case types.DirectionImport:
		return ImportFile(ctx, p, book, opts)
	case types.DirectionExport:
		return ExportFile(ctx, p, book, opts)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
}

// ImportFile lays the profile's export file out over the workbook. Nothing is written
// until the whole document has been transformed.
func ImportFile(ctx context.Context, p profile.Profile, book workbook.Book, opts Options) (*types.ConversionResult, error) {
	log := opts.logger().With("profile", p.Name, "direction", types.DirectionImport)

	s, err := p.SchemaVariant()
	if err != nil {
		return nil, err
	}

	doc, err := ReadExportFile(p.ExportPath(), s)
	if err != nil {
		return nil, err
	}
	log.Debug("read export", "file", p.ExportPath(), "directives", len(doc.Directives), "records", len(doc.Records))

	grid, err := book.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", book.Name(), err)
	}

	out, result := Import(doc, grid, s, opts.Progress)
	result.InputFile = p.ExportPath()
	result.OutputFile = book.Name()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.DryRun {
		before, err := render(grid)
		if err != nil {
			return nil, err
		}
		after, err := render(out)
		if err != nil {
			return nil, err
		}
		result.DryRun = true
		result.Diff = diffpatch.GeneratePatch(book.Name(), before, after)
		return result, nil
	}

	if err := book.Write(ctx, out, LayoutFor(s, len(doc.Records))); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", book.Name(), err)
	}
	log.Info("imported", "records", result.RowsProcessed, "cleared", result.RowsCleared)

	return result, nil
}

// ExportFile writes the workbook's contents to the profile's export file, generating
// identifiers for rows that have none.
func ExportFile(ctx context.Context, p profile.Profile, book workbook.Book, opts Options) (*types.ConversionResult, error) {
	log := opts.logger().With("profile", p.Name, "direction", types.DirectionExport)

	s, err := p.SchemaVariant()
	if err != nil {
		return nil, err
	}

	grid, err := book.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", book.Name(), err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = guid.NewGenerator(p.GUIDPrefix)
	}

	rows, result, err := Export(grid, s, ids, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", book.Name(), err)
	}
	result.InputFile = book.Name()
	result.OutputFile = p.ExportPath()

	var buf bytes.Buffer
	if err := WriteExport(&buf, rows); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.DryRun {
		before, err := os.ReadFile(p.ExportPath())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		result.DryRun = true
		result.Diff = diffpatch.GeneratePatch(p.ExportPath(), string(before), buf.String())
		return result, nil
	}

	if err := atomic.WriteFile(p.ExportPath(), &buf); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", p.ExportPath(), err)
	}
	log.Info("exported", "records", result.RowsProcessed, "generated", result.IDsGenerated)

	return result, nil
}

// LayoutFor places the rewritten regions of a schema's worksheet
func LayoutFor(s schema.Schema, records int) workbook.Layout {
	metaFirst, metaLast := s.MetaRange()
	return workbook.Layout{
		MetaFirst: metaFirst,
		MetaLast:  metaLast,
		HeaderRow: s.HeaderRow,
		DataStart: s.DataStartRow,
		DataRows:  records,
		Fields:    s.Fields,
	}
}

func render(rows [][]string) (string, error) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
