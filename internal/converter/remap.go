package converter

import "github.com/jlnkls/xls-anki-converter/internal/schema"

// Remap swaps the learned and source fields of a record. The swap is its own
// inverse, so the same function maps export order to workbook order and back.
// Records shorter than the source field are returned unchanged.
func Remap(fields []string) []string {
	out := make([]string, len(fields))
	copy(out, fields)
	if len(out) > schema.FieldSource {
		out[schema.FieldLearned], out[schema.FieldSource] = out[schema.FieldSource], out[schema.FieldLearned]
	}
	return out
}
