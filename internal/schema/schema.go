// Package schema defines the deck variants: how many directive lines an export carries,
// where the worksheet header and data start, and how many fields a record has.
package schema

import (
	"errors"
	"fmt"
	"sort"
)

// Field positions shared by every variant
const (
	FieldGUID = iota
	FieldLearned
	FieldSource
	FieldTags
	FieldNotetype
)

// Directive column indices written into the metadata block
const (
	TagsColumn     = 4
	NotetypeColumn = 5
)

// TitleRow is the worksheet row above the metadata block. Conversions never touch it.
const TitleRow = 1

var ErrUnknownSchema = errors.New("unknown schema")

// Schema describes the row and column layout shared by an export document and its workbook.
type Schema struct {
	Name         string
	MetaRows     int // directive lines at the top of the export, mirrored from row 2
	HeaderRow    int
	DataStartRow int
	Fields       int
	Notetype     bool
}

var (
	Basic = Schema{
		Name:         "basic",
		MetaRows:     4,
		HeaderRow:    6,
		DataStartRow: 7,
		Fields:       4,
	}

	WithNotetype = Schema{
		Name:         "notetype",
		MetaRows:     5,
		HeaderRow:    7,
		DataStartRow: 9,
		Fields:       5,
		Notetype:     true,
	}
)

var variants = map[string]Schema{
	Basic.Name:        Basic,
	WithNotetype.Name: WithNotetype,
}

// Lookup returns the built-in schema with the given name
func Lookup(name string) (Schema, error) {
	s, ok := variants[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names lists the built-in schema names in sorted order
func Names() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetaRange returns the first and last workbook rows of the metadata block.
func (s Schema) MetaRange() (first, last int) {
	return TitleRow + 1, TitleRow + s.MetaRows
}

// Validate checks that the regions are ordered and do not overlap.
func (s Schema) Validate() error {
	_, last := s.MetaRange()
	switch {
	case s.MetaRows < 1:
		return fmt.Errorf("schema %s: needs at least one metadata row", s.Name)
	case s.HeaderRow <= last:
		return fmt.Errorf("schema %s: header row %d overlaps metadata rows", s.Name, s.HeaderRow)
	case s.DataStartRow <= s.HeaderRow:
		return fmt.Errorf("schema %s: data start row %d is not below header row %d", s.Name, s.DataStartRow, s.HeaderRow)
	case s.Fields < FieldTags+1:
		return fmt.Errorf("schema %s: needs at least %d fields", s.Name, FieldTags+1)
	case s.Notetype && s.Fields < FieldNotetype+1:
		return fmt.Errorf("schema %s: notetype needs %d fields", s.Name, FieldNotetype+1)
	}
	return nil
}
