package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
profiles:
  korean:
    dir: /decks
    name: Korean
    schema: notetype
    guid_prefix: KR
  spanish:
    dir: /decks/es
    workbook_ext: xlsx
  shared:
    dir: /decks
    backend: gsheets
    spreadsheet_id: abc123
`

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got := strings.Join(cfg.Names(), ","); got != "korean,shared,spanish" {
		t.Errorf("Names() = %s", got)
	}

	tests := []struct {
		name         string
		profile      string
		wantExport   string
		wantWorkbook string
		wantSchema   string
		wantBackend  string
	}{
		{"Explicit name", "korean", "/decks/Korean.txt", "/decks/Korean.xlsm", "notetype", BackendXLSX},
		{"Defaults to profile name", "spanish", "/decks/es/spanish.txt", "/decks/es/spanish.xlsx", "basic", BackendXLSX},
		{"Google Sheets", "shared", "/decks/shared.txt", "/decks/shared.xlsm", "basic", BackendGSheets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.Lookup(tt.profile)
			if err != nil {
				t.Fatal(err)
			}
			if p.Name != tt.profile {
				t.Errorf("Name = %q; want %q", p.Name, tt.profile)
			}
			if got := p.ExportPath(); got != filepath.FromSlash(tt.wantExport) {
				t.Errorf("ExportPath() = %q; want %q", got, tt.wantExport)
			}
			if got := p.WorkbookPath(); got != filepath.FromSlash(tt.wantWorkbook) {
				t.Errorf("WorkbookPath() = %q; want %q", got, tt.wantWorkbook)
			}
			if p.Schema != tt.wantSchema {
				t.Errorf("Schema = %q; want %q", p.Schema, tt.wantSchema)
			}
			if p.Backend != tt.wantBackend {
				t.Errorf("Backend = %q; want %q", p.Backend, tt.wantBackend)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"Empty file", "", ErrNoProfiles},
		{"No profiles", "profiles: {}\n", ErrNoProfiles},
		{"Unknown schema", "profiles:\n  x:\n    dir: /d\n    schema: fancy\n", ErrInvalidProfile},
		{"Missing dir", "profiles:\n  x:\n    name: X\n", ErrInvalidProfile},
		{"Unknown backend", "profiles:\n  x:\n    dir: /d\n    backend: dropbox\n", ErrUnknownBackend},
		{"Sheets without id", "profiles:\n  x:\n    dir: /d\n    backend: gsheets\n", ErrInvalidProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("profiles:\n  x:\n    dir: /d\n    colour: blue\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLookupUnknown(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	_, err = cfg.Lookup("german")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Lookup() error = %v; want ErrUnknownProfile", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Profiles) != 3 {
		t.Errorf("loaded %d profiles; want 3", len(cfg.Profiles))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v; want not exist", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/decks"); got != filepath.Join(home, "decks") {
		t.Errorf("expandHome(~/decks) = %q", got)
	}
	if got := expandHome("/abs/~x"); got != "/abs/~x" {
		t.Errorf("expandHome(/abs/~x) = %q; want unchanged", got)
	}
}
