package workbook

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig selects a worksheet in a Google Sheets spreadsheet
type SheetsConfig struct {
	SpreadsheetID string
	SheetName     string // empty selects the first sheet
	// Credentials is a service account JSON key path. When empty,
	// GOOGLE_APPLICATION_CREDENTIALS and then application default credentials are used.
	Credentials string
}

// Validate checks if the configuration is valid
func (c *SheetsConfig) Validate() error {
	if c.SpreadsheetID == "" {
		return ErrMissingSpreadsheetID
	}
	return nil
}

// Sheets is a worksheet in a Google Sheets spreadsheet. Only cell values are
// read and written; formatting stays with the spreadsheet.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// OpenSheets connects to the spreadsheet with credentials resolved from cfg
func OpenSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opt, err := clientOption(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return NewSheets(ctx, cfg, opt)
}

// NewSheets creates a Google Sheets book with the given client options
func NewSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	s := &Sheets{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}
	if err := s.resolveSheet(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func clientOption(ctx context.Context, jsonPath string) (option.ClientOption, error) {
	if jsonPath == "" {
		jsonPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if jsonPath == "" {
		tokenSource, err := google.DefaultTokenSource(ctx, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("failed to get default token source: %w", err)
		}
		return option.WithTokenSource(tokenSource), nil
	}

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON key file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return option.WithCredentials(creds), nil
}

func (s *Sheets) resolveSheet(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		if s.sheetName == "" || sh.Properties.Title == s.sheetName {
			s.sheetName = sh.Properties.Title
			return nil
		}
	}
	return fmt.Errorf("%w: %q in spreadsheet %s", ErrSheetNotFound, s.sheetName, s.spreadsheetID)
}

func (s *Sheets) Name() string {
	return fmt.Sprintf("gsheets:%s/%s", s.spreadsheetID, s.sheetName)
}

func (s *Sheets) Rows(ctx context.Context) ([][]string, error) {
	// Unformatted values match what the xlsx backend reads with RawCellValue
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("A:ZZ")).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet data: %w", err)
	}
	return fromValues(resp.Values), nil
}

// Write overwrites the grid in one update and clears rows the new grid no longer
// reaches. Google Sheets has no print area to maintain.
func (s *Sheets) Write(ctx context.Context, rows [][]string, layout Layout) error {
	old, err := s.Rows(ctx)
	if err != nil {
		return err
	}

	vr := &sheets.ValueRange{Values: toValues(rows, max(width(old), width(rows)))}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.a1("A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet: %w", err)
	}

	if len(old) > len(rows) {
		clearRange := s.a1(fmt.Sprintf("A%d:ZZ", len(rows)+1))
		_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to clear sheet: %w", err)
		}
	}
	return nil
}

func (s *Sheets) Close() error {
	return nil
}

func (s *Sheets) a1(ref string) string {
	return "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'!" + ref
}

func fromValues(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = cellString(v)
		}
	}
	for len(rows) > 0 && len(trimRow(rows[len(rows)-1])) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}

// cellString renders an unformatted cell. Numbers arrive as float64 and are written
// without an exponent.
func cellString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// toValues pads every row to w cells so stale cells to the right are blanked
func toValues(rows [][]string, w int) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, w)
		for j := range values[i] {
			values[i][j] = ""
			if j < len(row) {
				values[i][j] = row[j]
			}
		}
	}
	return values
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
