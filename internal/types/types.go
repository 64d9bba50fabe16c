package types

type Direction string

const (
	DirectionImport Direction = "import"
	DirectionExport Direction = "export"
)

type ConversionResult struct {
	Direction     Direction
	InputFile     string
	OutputFile    string
	MetaRows      int
	RowsProcessed int
	RowsCleared   int
	IDsGenerated  int
	DryRun        bool
	Diff          string
}

// Document is a parsed flashcard export: directive lines then records.
type Document struct {
	Directives [][]string
	Records    [][]string
}
