package converter

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/jlnkls/xls-anki-converter/internal/guid"
	"github.com/jlnkls/xls-anki-converter/internal/schema"
	"github.com/jlnkls/xls-anki-converter/internal/types"
)

// sequence hands out fixed identifiers in order, wrapping around
type sequence struct {
	ids []string
	n   int
}

func (s *sequence) Next() string {
	id := s.ids[s.n%len(s.ids)]
	s.n++
	return id
}

func basicDirectives() [][]string {
	return [][]string{
		{"#separator:tab"},
		{"#html:true"},
		{"#guid column:1"},
		{"#tags column:7"},
	}
}

// basicGrid is a worksheet with a title, the metadata block, a header and the given data rows
func basicGrid(data ...[]string) [][]string {
	grid := [][]string{{"Korean deck"}}
	grid = append(grid, [][]string{
		{"#separator:tab"},
		{"#html:true"},
		{"#guid column:1"},
		{"#tags column:4"},
	}...)
	grid = append(grid, []string{"GUID", "English", "Korean", "Tags"})
	return append(grid, data...)
}

func TestImport(t *testing.T) {
	doc := &types.Document{
		Directives: basicDirectives(),
		Records: [][]string{
			{"g1", "하나", "one", "num"},
			{"g2", "=SUM(A1)", "two", ""},
		},
	}
	grid := basicGrid(
		[]string{"old1", "a", "b", "c"},
		[]string{"old2", "a", "b", "c"},
		[]string{"old3", "a", "b", "c"},
	)

	out, result := Import(doc, grid, schema.Basic, nil)

	if len(out) != 8 {
		t.Fatalf("Import() returned %d rows; want 8: %v", len(out), out)
	}
	if out[0][0] != "Korean deck" {
		t.Errorf("title = %v; want untouched", out[0])
	}
	if out[4][0] != "#tags column:4" {
		t.Errorf("tags directive = %q; want renumbered", out[4][0])
	}
	if out[5][1] != "English" {
		t.Errorf("header = %v; want untouched", out[5])
	}
	if want := []string{"g1", "one", "하나", "num"}; !reflect.DeepEqual(out[6], want) {
		t.Errorf("row 7 = %v; want %v", out[6], want)
	}
	if out[7][2] != " =SUM(A1)" {
		t.Errorf("formula cell = %q; want guarded", out[7][2])
	}

	if result.RowsProcessed != 2 || result.RowsCleared != 3 || result.MetaRows != 4 {
		t.Errorf("result = %+v", result)
	}
	if result.Direction != types.DirectionImport {
		t.Errorf("Direction = %q", result.Direction)
	}
}

func TestImportGrowsAndShrinks(t *testing.T) {
	tests := []struct {
		name    string
		oldRows int
		newRows int
	}{
		{"Grow", 3, 10},
		{"Shrink", 10, 3},
		{"Empty export", 5, 0},
		{"Empty workbook", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data [][]string
			for i := 0; i < tt.oldRows; i++ {
				data = append(data, []string{fmt.Sprintf("old%d", i), "a", "b", "c"})
			}
			doc := &types.Document{Directives: basicDirectives()}
			for i := 0; i < tt.newRows; i++ {
				doc.Records = append(doc.Records, []string{fmt.Sprintf("new%d", i), "ko", "en", ""})
			}

			out, result := Import(doc, basicGrid(data...), schema.Basic, nil)

			if want := schema.Basic.DataStartRow - 1 + tt.newRows; len(out) != want {
				t.Fatalf("Import() returned %d rows; want %d", len(out), want)
			}
			for _, row := range out {
				if len(row) > 0 && strings.HasPrefix(row[0], "old") {
					t.Errorf("leftover row %v", row)
				}
			}
			if result.RowsCleared != tt.oldRows {
				t.Errorf("RowsCleared = %d; want %d", result.RowsCleared, tt.oldRows)
			}
		})
	}
}

func TestImportNotetype(t *testing.T) {
	doc := &types.Document{
		Directives: [][]string{
			{"#separator:tab"},
			{"#html:true"},
			{"#guid column:1"},
			{"#notetype column:2"},
			{"#tags column:3"},
		},
		Records: [][]string{{"g1", "ko", "en", "t", "Basic"}},
	}

	out, _ := Import(doc, nil, schema.WithNotetype, nil)

	if len(out) != 9 {
		t.Fatalf("Import() returned %d rows; want 9", len(out))
	}
	if out[4][0] != "#notetype column:5" || out[5][0] != "#tags column:4" {
		t.Errorf("directives = %v, %v", out[4], out[5])
	}
	if out[6] != nil || out[7] != nil {
		t.Errorf("header and spacer rows = %v, %v; want empty", out[6], out[7])
	}
	if want := []string{"g1", "en", "ko", "t", "Basic"}; !reflect.DeepEqual(out[8], want) {
		t.Errorf("row 9 = %v; want %v", out[8], want)
	}
}

func TestImportDoesNotModifyGrid(t *testing.T) {
	grid := basicGrid([]string{"=x", "a", "b", "c"})
	doc := &types.Document{Directives: basicDirectives()}
	Import(doc, grid, schema.Basic, nil)
	if grid[6][0] != "=x" {
		t.Errorf("grid modified: %v", grid[6])
	}
}

func TestExport(t *testing.T) {
	grid := basicGrid(
		[]string{"", "en", "ko", "tag1"},
		[]string{"g2", "en2", "ko2"},
		[]string{},
		[]string{"", "", ""},
		[]string{"g3", " =SUM(A1)", "ko3", ""},
	)

	rows, result, err := Export(grid, schema.Basic, guid.NewGenerator("KR"), nil)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	if len(rows) != 7 {
		t.Fatalf("Export() returned %d rows; want 4 directives and 3 records: %v", len(rows), rows)
	}
	if rows[3][0] != "#tags column:4" {
		t.Errorf("directive row = %v", rows[3])
	}

	id := strings.Trim(rows[4][0], `"`)
	if !regexp.MustCompile(`^KR-.{10}$`).MatchString(id) {
		t.Errorf("generated id = %q; want KR-<10 chars>", rows[4][0])
	}
	if want := []string{"ko", "en", "tag1"}; !reflect.DeepEqual(rows[4][1:], want) {
		t.Errorf("record 1 = %v; want fields %v", rows[4], want)
	}
	if want := []string{"g2", "ko2", "en2", ""}; !reflect.DeepEqual(rows[5], want) {
		t.Errorf("record 2 = %v; want %v", rows[5], want)
	}
	if rows[6][2] != "=SUM(A1)" {
		t.Errorf("formula cell = %q; want unescaped", rows[6][2])
	}

	if result.RowsProcessed != 3 || result.IDsGenerated != 1 || result.MetaRows != 4 {
		t.Errorf("result = %+v", result)
	}
}

func TestExportQuotesReservedIDs(t *testing.T) {
	grid := basicGrid(
		[]string{"abc#1", "en", "ko", ""},
		[]string{"", "en", "ko", ""},
	)

	rows, _, err := Export(grid, schema.Basic, &sequence{ids: []string{"n#1"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rows[4][0] != `"abc#1"` {
		t.Errorf("existing id = %q; want quoted", rows[4][0])
	}
	if rows[5][0] != `"n#1"` {
		t.Errorf("generated id = %q; want quoted", rows[5][0])
	}
}

func TestExportUniqueIDs(t *testing.T) {
	grid := basicGrid(
		[]string{"", "a", "b"},
		[]string{"dup", "c", "d"},
	)

	rows, result, err := Export(grid, schema.Basic, &sequence{ids: []string{"dup", "n1"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rows[4][0] != "n1" || rows[5][0] != "dup" {
		t.Errorf("ids = %q, %q; want n1, dup", rows[4][0], rows[5][0])
	}
	if result.IDsGenerated != 1 {
		t.Errorf("IDsGenerated = %d; want 1", result.IDsGenerated)
	}
}

func TestExportMissingDirectives(t *testing.T) {
	tests := []struct {
		name string
		grid [][]string
	}{
		{"Empty workbook", nil},
		{"Blank metadata row", [][]string{{"t"}, {"#a:b"}, {}, {"#c:d"}, {"#e:f"}}},
		{"Text in metadata row", [][]string{{"t"}, {"#a:b"}, {"notes"}, {"#c:d"}, {"#e:f"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Export(tt.grid, schema.Basic, guid.NewGenerator(""), nil)
			if !errors.Is(err, ErrMissingDirectives) {
				t.Errorf("Export() error = %v; want ErrMissingDirectives", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	doc := &types.Document{
		Directives: [][]string{
			{"#separator:tab"},
			{"#html:true"},
			{"#guid column:1"},
			{"#tags column:4"},
		},
		Records: [][]string{
			{"g1", "하나", "one", "num"},
			{"g2", "=1+1", "two", ""},
			{"g3", "셋", "three", "a b"},
		},
	}

	grid, _ := Import(doc, basicGrid(), schema.Basic, nil)
	rows, _, err := Export(grid, schema.Basic, guid.NewGenerator(""), nil)
	if err != nil {
		t.Fatal(err)
	}

	want := append(append([][]string(nil), doc.Directives...), doc.Records...)
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("round trip = %v; want %v", rows, want)
	}
}

func TestExportParsesBack(t *testing.T) {
	grid := basicGrid(
		[]string{"g1", `"hi" he said`, "안녕", ""},
		[]string{"abc#2", `"a" and "b"`, "둘", "quote"},
		[]string{"g3", "three", "셋", ""},
	)

	rows, _, err := Export(grid, schema.Basic, guid.NewGenerator(""), nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteExport(&buf, rows); err != nil {
		t.Fatal(err)
	}

	doc, err := ParseExport(&buf, schema.Basic)
	if err != nil {
		t.Fatalf("ParseExport() failed: %v", err)
	}
	want := [][]string{
		{"g1", "안녕", `"hi" he said`, ""},
		{"abc#2", "둘", `"a" and "b"`, "quote"},
		{"g3", "셋", "three", ""},
	}
	if !reflect.DeepEqual(doc.Records, want) {
		t.Errorf("records = %q; want %q", doc.Records, want)
	}
}

func TestProgressReported(t *testing.T) {
	progress := make(chan float64, 10)
	doc := &types.Document{Directives: basicDirectives()}
	for i := 0; i < 4; i++ {
		doc.Records = append(doc.Records, []string{"g", "a", "b", ""})
	}

	Import(doc, nil, schema.Basic, progress)
	close(progress)

	var last float64
	n := 0
	for p := range progress {
		last = p
		n++
	}
	if n != 4 || last != 1 {
		t.Errorf("got %d updates ending at %v; want 4 ending at 1", n, last)
	}
}

func TestProgressDoesNotBlock(t *testing.T) {
	progress := make(chan float64)
	doc := &types.Document{Directives: basicDirectives(), Records: [][]string{{"g", "a", "b", ""}}}
	Import(doc, nil, schema.Basic, progress)
}
