// Package profile resolves a profile name from the command line to the files, schema
// and identifier prefix of one deck.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jlnkls/xls-anki-converter/internal/schema"
	"github.com/jlnkls/xls-anki-converter/internal/workbook"

	"gopkg.in/yaml.v3"
)

const (
	BackendXLSX    = "xlsx"
	BackendGSheets = "gsheets"
)

var (
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrUnknownBackend  = errors.New("unknown backend")
	defaultWorkbookExt = ".xlsm"
)

// Config is the profile file: a map of profile name to deck settings.
type Config struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile describes one deck. The export file is <dir>/<name>.txt and the workbook
// <dir>/<name><workbook_ext> unless the backend is Google Sheets.
type Profile struct {
	Name          string `yaml:"-"`
	Dir           string `yaml:"dir"`
	Base          string `yaml:"name"`
	WorkbookExt   string `yaml:"workbook_ext"`
	Sheet         string `yaml:"sheet"`
	Schema        string `yaml:"schema"`
	GUIDPrefix    string `yaml:"guid_prefix"`
	Backend       string `yaml:"backend"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Credentials   string `yaml:"credentials"`
}

// DefaultPath is where the profile file lives when no path is given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "profiles.yaml"
	}
	return filepath.Join(dir, "xls-anki-converter", "profiles.yaml")
}

// Load reads and validates the profile file at path
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a profile file, rejecting unknown keys and applying defaults.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoProfiles
		}
		return nil, err
	}
	if len(cfg.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for name, p := range cfg.Profiles {
		p.Name = name
		p = p.withDefaults()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		cfg.Profiles[name] = p
	}
	return &cfg, nil
}

// Lookup returns the named profile
func (c *Config) Lookup(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (have %s)", ErrUnknownProfile, name, strings.Join(c.Names(), ", "))
	}
	return p, nil
}

// Names lists profile names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Profile) withDefaults() Profile {
	if p.Backend == "" {
		p.Backend = BackendXLSX
	}
	if p.Schema == "" {
		p.Schema = schema.Basic.Name
	}
	if p.WorkbookExt == "" {
		p.WorkbookExt = defaultWorkbookExt
	}
	if !strings.HasPrefix(p.WorkbookExt, ".") {
		p.WorkbookExt = "." + p.WorkbookExt
	}
	if p.Base == "" {
		p.Base = p.Name
	}
	return p
}

// Validate checks the profile is complete for its backend
func (p Profile) Validate() error {
	if _, err := schema.Lookup(p.Schema); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidProfile, p.Name, err)
	}
	if p.Dir == "" {
		return fmt.Errorf("%w %s: dir is required", ErrInvalidProfile, p.Name)
	}
	switch p.Backend {
	case BackendXLSX:
	case BackendGSheets:
		if p.SpreadsheetID == "" {
			return fmt.Errorf("%w %s: %w", ErrInvalidProfile, p.Name, workbook.ErrMissingSpreadsheetID)
		}
	default:
		return fmt.Errorf("%w %s: %w %q", ErrInvalidProfile, p.Name, ErrUnknownBackend, p.Backend)
	}
	return nil
}

// SchemaVariant returns the schema the profile's deck uses
func (p Profile) SchemaVariant() (schema.Schema, error) {
	return schema.Lookup(p.Schema)
}

func (p Profile) ExportPath() string {
	return filepath.Join(expandHome(p.Dir), p.Base+".txt")
}

func (p Profile) WorkbookPath() string {
	return filepath.Join(expandHome(p.Dir), p.Base+p.WorkbookExt)
}

// OpenBook opens the profile's worksheet on its configured backend
func (p Profile) OpenBook(ctx context.Context) (workbook.Book, error) {
	switch p.Backend {
	case BackendGSheets:
		return workbook.OpenSheets(ctx, workbook.SheetsConfig{
			SpreadsheetID: p.SpreadsheetID,
			SheetName:     p.Sheet,
			Credentials:   expandHome(p.Credentials),
		})
	default:
		return workbook.OpenFile(p.WorkbookPath(), p.Sheet)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
