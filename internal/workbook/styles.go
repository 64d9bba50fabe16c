package workbook

import (
	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"
)

func dataStyle() *excelize.Style {
	return &excelize.Style{
		Alignment: &excelize.Alignment{
			Vertical: "top",
			WrapText: true,
		},
	}
}

func metaStyle() *excelize.Style {
	return &excelize.Style{
		Font: &excelize.Font{
			Italic: true,
			Color:  "#808080",
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	}
}

// mergeStyles folds the later styles into the first, later values winning.
func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}

// restyle layers overlay on top of whatever style the first cell of each column in
// the block already has, then applies the result to the whole column block.
func restyle(f *excelize.File, sheet string, firstRow, lastRow, cols int, overlay func() *excelize.Style) error {
	if lastRow < firstRow || cols < 1 {
		return nil
	}
	for col := 1; col <= cols; col++ {
		top, err := excelize.CoordinatesToCellName(col, firstRow)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col, lastRow)
		if err != nil {
			return err
		}

		base := &excelize.Style{}
		if id, err := f.GetCellStyle(sheet, top); err == nil && id != 0 {
			if existing, err := f.GetStyle(id); err == nil && existing != nil {
				base = existing
			}
		}

		style, err := f.NewStyle(mergeStyles(base, overlay()))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return err
		}
	}
	return nil
}
